// Package seed opens accounts with opening balances from YAML fixture files.
//
// Every fixture carries a fingerprint that becomes the reference of its
// opening credit, so seeding the same files twice moves no money.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aevon-lab/project-ledger/internal/core/hashguard"
	"github.com/aevon-lab/project-ledger/internal/ledger/account"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture is one account to open, with its opening balance.
type Fixture struct {
	AccountID      string
	Owner          string
	Asset          string
	OpeningBalance decimal.Decimal
	Fingerprint    string // SHA-256 of the account entry; computed at load time
	Source         string // file the fixture came from
}

// Reference is the credit reference of the opening balance.
func (f Fixture) Reference() string {
	return "seed:" + f.Fingerprint
}

// rawFile is the on-disk YAML shape.
type rawFile struct {
	Accounts []rawAccount `yaml:"accounts"`
}

type rawAccount struct {
	ID             string `yaml:"id"`
	Owner          string `yaml:"owner"`
	Asset          string `yaml:"asset"`
	OpeningBalance string `yaml:"opening_balance"` // optional; empty or "0" opens without credit
}

// Ledger is the part of ledger.Service the seeder drives.
type Ledger interface {
	OpenAccount(ctx context.Context, id, owner, asset string) (*account.Account, error)
	Credit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
}

// LoadDir reads every *.yaml / *.yml file of dir in name order.
// A missing directory yields no fixtures.
func LoadDir(dir string) ([]Fixture, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("seed path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading seed dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var fixtures []Fixture
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading seed file %s: %w", path, err)
		}

		parsed, err := Parse(data, path)
		if err != nil {
			return nil, err
		}
		for _, f := range parsed {
			if prev, dup := seen[f.AccountID]; dup {
				return nil, fmt.Errorf("account %q: seeded twice (%s and %s)", f.AccountID, prev, path)
			}
			seen[f.AccountID] = path
		}
		fixtures = append(fixtures, parsed...)
	}
	return fixtures, nil
}

// Parse decodes one fixture document. source names it in errors.
func Parse(data []byte, source string) ([]Fixture, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", source, err)
	}

	fixtures := make([]Fixture, 0, len(raw.Accounts))
	for i, acc := range raw.Accounts {
		if acc.ID == "" {
			return nil, fmt.Errorf("%s: account %d has no id", source, i)
		}
		if acc.Owner == "" {
			return nil, fmt.Errorf("%s: account %q has no owner", source, acc.ID)
		}
		asset, err := money.NormalizeAsset(acc.Asset)
		if err != nil {
			return nil, fmt.Errorf("%s: account %q: %w", source, acc.ID, err)
		}

		balance := decimal.Zero
		if s := strings.TrimSpace(acc.OpeningBalance); s != "" && s != "0" {
			balance, err = money.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("%s: account %q: %w", source, acc.ID, err)
			}
		}

		fixtures = append(fixtures, Fixture{
			AccountID:      acc.ID,
			Owner:          acc.Owner,
			Asset:          asset,
			OpeningBalance: balance,
			Fingerprint:    fingerprint(acc.ID, acc.Owner, asset, balance),
			Source:         source,
		})
	}
	return fixtures, nil
}

func fingerprint(id, owner, asset string, balance decimal.Decimal) string {
	return hashguard.Compute(id, owner, asset, balance.String())
}

// Apply opens every fixture account and credits its opening balance.
// Re-applying the same fixtures is a no-op: both commands come back as
// duplicates and the ledger treats them as already done.
func Apply(ctx context.Context, ledger Ledger, fixtures []Fixture) error {
	for _, f := range fixtures {
		// An account opened earlier for another owner or asset fails here
		// with an invalid state transition.
		if _, err := ledger.OpenAccount(ctx, f.AccountID, f.Owner, f.Asset); err != nil {
			return fmt.Errorf("seed %s: open: %w", f.AccountID, err)
		}

		if f.OpeningBalance.IsPositive() {
			if err := ledger.Credit(ctx, f.AccountID, f.OpeningBalance, f.Reference()); err != nil {
				return fmt.Errorf("seed %s: credit: %w", f.AccountID, err)
			}
		}

		slog.Info("[Seed] Account seeded",
			"account_id", f.AccountID,
			"asset", f.Asset,
			"opening_balance", f.OpeningBalance.String(),
			"source", f.Source)
	}
	return nil
}

package mocks

//go:generate mockery --name EventLog --srcpkg github.com/aevon-lab/project-ledger/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name HashIndex --srcpkg github.com/aevon-lab/project-ledger/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name EventFeed --srcpkg github.com/aevon-lab/project-ledger/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Journal --srcpkg github.com/aevon-lab/project-ledger/internal/saga --output ./saga --outpkg sagamocks --with-expecter
//go:generate mockery --name Custodian --srcpkg github.com/aevon-lab/project-ledger/internal/custodian --output ./custodian --outpkg custodianmocks --with-expecter

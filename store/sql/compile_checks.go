package sqlstore

import "github.com/goliatone/go-banklink/core"

var (
	_ core.LinkageStore           = (*LinkageStore)(nil)
	_ core.LinkAttemptStore       = (*LinkAttemptStore)(nil)
	_ core.UserProfileStore       = (*UserProfileStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)

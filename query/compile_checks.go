package query

import (
	"github.com/goliatone/go-banklink/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[GetLinkageMessage, core.BankAccountLinkage]              = (*GetLinkageQuery)(nil)
	_ gocmd.Querier[GetLinkageByShareableIDMessage, core.BankAccountLinkage] = (*GetLinkageByShareableIDQuery)(nil)
	_ gocmd.Querier[ListLinkagesMessage, []core.BankAccountLinkage]          = (*ListLinkagesQuery)(nil)
	_ gocmd.Querier[GetLinkAttemptMessage, core.LinkAttempt]                 = (*GetLinkAttemptQuery)(nil)
	_ gocmd.Querier[CurrentUserMessage, core.User]                           = (*CurrentUserQuery)(nil)
	_ gocmd.Querier[GetUserProfileMessage, core.UserProfile]                 = (*GetUserProfileQuery)(nil)
)

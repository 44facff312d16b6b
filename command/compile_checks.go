package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateLinkSessionMessage] = (*CreateLinkSessionCommand)(nil)
	_ gocmd.Commander[LinkBankAccountMessage]   = (*LinkBankAccountCommand)(nil)
	_ gocmd.Commander[ResumeLinkageMessage]     = (*ResumeLinkageCommand)(nil)
	_ gocmd.Commander[CreateLinkageMessage]     = (*CreateLinkageCommand)(nil)
	_ gocmd.Commander[SaveUserProfileMessage]   = (*SaveUserProfileCommand)(nil)
)

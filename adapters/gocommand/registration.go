package gocommand

import (
	"fmt"

	banklink "github.com/goliatone/go-banklink"
	"github.com/goliatone/go-command/runner"
)

// RegisterFacade puts every banklink command and query on the bus. On error
// the handlers registered so far are unsubscribed.
func RegisterFacade(bus *Bus, facade *banklink.Facade, runnerOpts ...runner.Option) error {
	if err := bus.ready(); err != nil {
		return err
	}
	if facade == nil {
		return fmt.Errorf("gocommand: facade is required")
	}
	commands := facade.Commands()
	queries := facade.Queries()

	steps := []func() error{
		func() error { return Handle(bus, commands.CreateLinkSession, runnerOpts...) },
		func() error { return Handle(bus, commands.LinkBankAccount, runnerOpts...) },
		func() error { return Handle(bus, commands.ResumeLinkage, runnerOpts...) },
		func() error { return Handle(bus, commands.CreateLinkage, runnerOpts...) },
		func() error { return Handle(bus, commands.SaveUserProfile, runnerOpts...) },
		func() error { return HandleQuery(bus, queries.GetLinkage, runnerOpts...) },
		func() error { return HandleQuery(bus, queries.GetLinkageByShareableID, runnerOpts...) },
		func() error { return HandleQuery(bus, queries.ListLinkages, runnerOpts...) },
		func() error { return HandleQuery(bus, queries.GetLinkAttempt, runnerOpts...) },
		func() error { return HandleQuery(bus, queries.CurrentUser, runnerOpts...) },
		func() error { return HandleQuery(bus, queries.GetUserProfile, runnerOpts...) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			bus.Close()
			return err
		}
	}
	return nil
}

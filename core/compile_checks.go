package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ LinkService = (*Service)(nil)
	_ error       = (*LinkError)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)

package gate

import (
	"context"

	"github.com/juju/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// HostLister reads the running processes of the local host.
type HostLister struct{}

func (HostLister) ProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// exited between listing and inspection
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// StaticLister returns a fixed list of names.
type StaticLister []string

func (s StaticLister) ProcessNames(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

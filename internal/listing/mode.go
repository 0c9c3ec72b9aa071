package listing

import (
	"bytes"
	"context"
	"fmt"

	"github.com/snadrus/ssher/internal/transport"
	"github.com/snadrus/ssher/internal/vpath"
)

// Mode selects the listing protocol variant. It is fixed by configuration;
// the remote host is never queried to pick one.
type Mode string

const (
	ModeBatched Mode = "batched"
	ModeLegacy  Mode = "legacy"
	ModeSFTP    Mode = "sftp"
)

// Options configures List.
type Options struct {
	Mode    Mode
	ShowDot bool
}

// Result holds the entries of whichever variant produced it: Records for
// batched and sftp, Legacy for legacy.
type Result struct {
	Mode    Mode
	Records []FileRecord
	Legacy  []LegacyEntry
}

// List fetches the one-level listing of vp. A non-nil error wrapping
// ErrListingProtocolViolation comes with a usable partial Result.
func List(ctx context.Context, t transport.Transport, vp vpath.VirtualPath, opts Options) (Result, error) {
	res := Result{Mode: opts.Mode}
	switch opts.Mode {
	case ModeBatched, "":
		res.Mode = ModeBatched
		out, err := transport.Output(ctx, t, vp.Target, BatchedCommand(vp.Path, opts.ShowDot))
		if err != nil {
			return res, err
		}
		res.Records, err = ParseBatched(bytes.NewReader(out))
		return res, err
	case ModeLegacy:
		out, err := transport.Output(ctx, t, vp.Target, LegacyCommand(vp.Path))
		if err != nil {
			return res, err
		}
		res.Legacy = ParseLegacy(string(out))
		return res, nil
	case ModeSFTP:
		p, ok := t.(SFTPProvider)
		if !ok {
			return res, fmt.Errorf("listing mode %q needs the native transport", opts.Mode)
		}
		c, err := p.SFTP(ctx, vp.Target)
		if err != nil {
			return res, fmt.Errorf("%w: %v", transport.ErrRemoteCommandFailed, err)
		}
		res.Records, err = ListSFTP(c, vp.Path, opts.ShowDot)
		if err != nil {
			return res, fmt.Errorf("%w: %v", transport.ErrRemoteCommandFailed, err)
		}
		return res, nil
	default:
		return res, fmt.Errorf("unknown listing mode %q", opts.Mode)
	}
}

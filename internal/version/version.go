package version

import (
	"context"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
)

// VERSION is set at link time with -X.
var VERSION = "v0.0.0"

// Info describes the running binary from its embedded vcs settings.
type Info struct {
	Revision string
	Time     time.Time
	Modified bool
}

// Read returns the vcs settings stamped by the go tool, zero when the binary
// was built without them.
func Read() Info {
	var o Info
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return o
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			o.Revision = s.Value
		case "vcs.time":
			o.Time, _ = time.Parse(time.RFC3339, s.Value)
		case "vcs.modified":
			o.Modified = s.Value == "true"
		}
	}
	return o
}

// String formats i as VERSION[-yyyymmdd][-revision][-dirty], the revision
// shortened to nine characters.
func (i Info) String() string {
	parts := []string{VERSION}
	if !i.Time.IsZero() {
		parts = append(parts, i.Time.UTC().Format("20060102"))
	}
	if r := i.Revision; r != "" {
		parts = append(parts, r[:min(len(r), 9)])
	}
	if i.Modified {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

func Command() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "prints version information",
		Action: func(ctx context.Context, c *cli.Command) error {
			os.Stdout.WriteString(Read().String() + "\n")
			return nil
		},
	}
}

package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	VERSION = "v1.2.3"
	t.Cleanup(func() { VERSION = "v0.0.0" })
	require.Equal(t, "v1.2.3", Info{}.String())
	require.Equal(t, "v1.2.3-20231012-012345678-dirty", Info{
		Revision: "0123456789abcdef",
		Time:     time.Date(2023, 10, 12, 8, 30, 0, 0, time.UTC),
		Modified: true,
	}.String())
	require.Equal(t, "v1.2.3-abc", Info{Revision: "abc"}.String())
}

package timerange

import (
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/vinceanalytics/tally/internal/core"
)

// time.LoadLocation reads the zone database on every call.
var zones = newZoneCache()

func newZoneCache() *ristretto.Cache {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * 1024,
		MaxCost:     1024,
		BufferItems: 64,
	})
	if err != nil {
		panic("timerange: creating zone cache " + err.Error())
	}
	return c
}

// Location resolves an IANA time zone name.
func Location(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, core.ErrValidation.New("time_zone is required")
	}
	if v, ok := zones.Get(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, core.ErrValidation.New("unknown time zone " + strconv.Quote(name))
	}
	zones.Set(name, loc, 1)
	return loc, nil
}

package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// minimal containers ship without tzdata, China has no DST so a fixed zone is exact
		Location = time.FixedZone("CST", 8*60*60)
	}
}

// Now returns the current time in China Standard Time, run timestamps are
// recorded in it.
func Now() time.Time {
	return time.Now().In(Location)
}

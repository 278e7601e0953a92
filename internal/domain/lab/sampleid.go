package lab

import (
	"fmt"
	"math/rand"
	"time"
)

const sampleIDPrefix = "SMP"

// newSharedSampleID builds a specimen identifier: prefix, date, seconds since
// midnight and a random suffix. Members of a batch deliberately share one id,
// so the id is not unique across rows; a collision between unrelated samples
// would need two collections in the same second drawing the same suffix.
func newSharedSampleID(now time.Time) string {
	secs := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return fmt.Sprintf("%s%s%05d%04d", sampleIDPrefix, now.Format("060102"), secs, rand.Intn(10000))
}

package snapshot

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// HashIDGenerator derives 8-hex-character snapshot ids from the commit
// timestamp, message and process id. Retries mix in random bytes.
type HashIDGenerator struct{}

func (HashIDGenerator) New(ts time.Time, message string, attempt int) string {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(ts.UnixNano()))
	d.Write(buf[:])
	d.WriteString(message)
	binary.LittleEndian.PutUint64(buf[:], uint64(os.Getpid()))
	d.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(time.Now().Nanosecond()))
	d.Write(buf[:])
	if attempt > 0 {
		u := uuid.New()
		d.Write(u[:])
	}
	return fmt.Sprintf("%016x", d.Sum64())[:8]
}

package i2c

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/sensorhub"
)

// MaxAddress is the highest 7-bit address.
const MaxAddress = 0x7F

// Scan probes every address in [from, to] with an empty write and returns the
// ones that acknowledged. A busy adapter is released and the address retried
// once.
func Scan(ctx context.Context, bus sensorhub.AddressableWriter, from, to byte) ([]byte, error) {
	if to > MaxAddress {
		to = MaxAddress
	}
	if from > to {
		return nil, fmt.Errorf("invalid scan range %#x-%#x", from, to)
	}
	var found []byte
	for addr := int(from); addr <= int(to); addr++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		err := bus.WriteToAddr(ctx, byte(addr), nil)
		if errors.Is(err, sensorhub.ErrBusBusy) {
			_ = bus.Release(ctx)
			err = bus.WriteToAddr(ctx, byte(addr), nil)
		}
		if err == nil {
			found = append(found, byte(addr))
		}
	}
	return found, nil
}

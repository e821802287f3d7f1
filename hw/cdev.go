package hw

import (
	"context"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/mklimuk/sensorhub"
)

var _ sensorhub.DigitalReader = &CharDev{}

// CharDev reads pins as line offsets of a GPIO character device. Lines are
// requested as inputs on first use and kept until Close.
type CharDev struct {
	mx    sync.Mutex
	chip  string
	lines map[int]*gpiocdev.Line
}

func NewCharDev(chip string) *CharDev {
	if chip == "" {
		chip = "gpiochip0"
	}
	return &CharDev{chip: chip, lines: make(map[int]*gpiocdev.Line)}
}

func (c *CharDev) line(offset int) (*gpiocdev.Line, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if l, ok := c.lines[offset]; ok {
		return l, nil
	}
	l, err := gpiocdev.RequestLine(c.chip, offset, gpiocdev.AsInput)
	if err != nil {
		return nil, fmt.Errorf("could not request %s line %d: %w", c.chip, offset, err)
	}
	c.lines[offset] = l
	return l, nil
}

func (c *CharDev) ReadDigital(ctx context.Context, pin int) (int, error) {
	l, err := c.line(pin)
	if err != nil {
		return 0, err
	}
	v, err := l.Value()
	if err != nil {
		return 0, fmt.Errorf("could not read %s line %d: %w", c.chip, pin, err)
	}
	return v, nil
}

func (c *CharDev) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	var firstErr error
	for offset, l := range c.lines {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.lines, offset)
	}
	return firstErr
}

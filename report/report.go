// Package report renders the channel registry for humans and spreadsheets.
package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/dispatch"
)

// Source is the read-only view of a registry the reports need.
type Source interface {
	FixedChannels() []channel.Fixed
	BusChannels() []channel.Bus
}

type Row struct {
	Channel int    `yaml:"channel"`
	Kind    string `yaml:"kind"`
	Mode    string `yaml:"mode"`
	Pin     *int   `yaml:"pin,omitempty"`
	Address *byte  `yaml:"address,omitempty"`
	ID      uint32 `yaml:"id,omitempty"`
	Active  bool   `yaml:"active"`
}

// Rows flattens the registry: fixed channels first, then bus channels.
func Rows(src Source) []Row {
	fixed, bus := src.FixedChannels(), src.BusChannels()
	rows := make([]Row, 0, len(fixed)+len(bus))
	for _, f := range fixed {
		pin := f.Pin
		rows = append(rows, Row{Channel: f.Channel, Kind: "fixed", Mode: f.Mode.String(), Pin: &pin, Active: f.Active})
	}
	for _, b := range bus {
		row := Row{Channel: b.Channel, Kind: "bus", Mode: b.Kind.String(), ID: b.ID, Active: b.Active}
		if pin, ok := b.Pin(); ok {
			row.Pin = &pin
		} else {
			addr := b.Address
			row.Address = &addr
		}
		rows = append(rows, row)
	}
	return rows
}

func (r Row) target() string {
	switch {
	case r.Address != nil:
		return fmt.Sprintf("addr %#02x", *r.Address)
	case r.Kind == "bus" && r.Pin != nil:
		return fmt.Sprintf("cs %d", *r.Pin)
	case r.Pin != nil:
		return fmt.Sprintf("pin %d", *r.Pin)
	}
	return "-"
}

func activeCount(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Active {
			n++
		}
	}
	return n
}

var (
	activeColor   = color.New(color.FgGreen).SprintFunc()
	inactiveColor = color.New(color.FgRed).SprintFunc()
	headerColor   = color.New(color.Bold).SprintFunc()
)

// Table writes an aligned listing followed by the active channel count.
func Table(w io.Writer, src Source) error {
	rows := Rows(src)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, headerColor("CHANNEL\tKIND\tMODE\tTARGET\tID\tSTATE"))
	for _, r := range rows {
		id := "-"
		if r.ID != 0 {
			id = strconv.FormatUint(uint64(r.ID), 10)
		}
		state := inactiveColor("inactive")
		if r.Active {
			state = activeColor("active")
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Channel, r.Kind, r.Mode, r.target(), id, state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d channels active\n", activeCount(rows), len(rows))
	return err
}

type document struct {
	Active   int   `yaml:"active"`
	Channels []Row `yaml:"channels"`
}

func YAML(w io.Writer, src Source) error {
	rows := Rows(src)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Active: activeCount(rows), Channels: rows}); err != nil {
		return fmt.Errorf("encoding error: %w", err)
	}
	return enc.Close()
}

// Readings writes one line per read result; failed reads show the error.
func Readings(w io.Writer, results []dispatch.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, headerColor("CHANNEL\tMODE\tVALUE\tTIME"))
	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t-\n", r.Channel, r.Mode, inactiveColor(r.Err.Error()))
			continue
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Channel, r.Mode,
			strconv.FormatFloat(r.Value, 'f', -1, 64), r.At.Format("15:04:05.000"))
	}
	return tw.Flush()
}

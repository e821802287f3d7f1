package registry

import "github.com/mklimuk/sensorhub/channel"

// busArena keeps bus channels in insertion order. Slots are never moved on
// removal, they are tombstoned and compacted once tombstones dominate.
type busArena struct {
	slots []busSlot
	byID  map[uint32]int
	live  int
}

type busSlot struct {
	ch   channel.Bus
	used bool
}

const compactThreshold = 16

func newBusArena() busArena {
	return busArena{byID: make(map[uint32]int)}
}

func (a *busArena) insert(ch channel.Bus) {
	a.slots = append(a.slots, busSlot{ch: ch, used: true})
	a.byID[ch.ID] = len(a.slots) - 1
	a.live++
}

// find returns the slot index of the channel number or -1.
func (a *busArena) find(number int) int {
	for i := range a.slots {
		if a.slots[i].used && a.slots[i].ch.Channel == number {
			return i
		}
	}
	return -1
}

func (a *busArena) byIndex(i int) *channel.Bus {
	return &a.slots[i].ch
}

func (a *busArena) lookupID(id uint32) (channel.Bus, bool) {
	i, ok := a.byID[id]
	if !ok {
		return channel.Bus{}, false
	}
	return a.slots[i].ch, true
}

func (a *busArena) remove(i int) {
	delete(a.byID, a.slots[i].ch.ID)
	a.slots[i] = busSlot{}
	a.live--
	if dead := len(a.slots) - a.live; dead > compactThreshold && dead > a.live {
		a.compact()
	}
}

func (a *busArena) compact() {
	slots := make([]busSlot, 0, a.live)
	for _, s := range a.slots {
		if s.used {
			a.byID[s.ch.ID] = len(slots)
			slots = append(slots, s)
		}
	}
	a.slots = slots
}

// each calls fn for every live channel in insertion order.
func (a *busArena) each(fn func(ch *channel.Bus)) {
	for i := range a.slots {
		if a.slots[i].used {
			fn(&a.slots[i].ch)
		}
	}
}

func (a *busArena) list() []channel.Bus {
	res := make([]channel.Bus, 0, a.live)
	a.each(func(ch *channel.Bus) {
		res = append(res, *ch)
	})
	return res
}

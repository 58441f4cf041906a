package domain

import (
	"fmt"
	"strings"
)

// Category is one tracked kind of dispensable item.
type Category uint8

const (
	ChocolateBar Category = iota
	WaterBottle
	ChipsPacket

	numCategories
)

type categoryInfo struct {
	key     string
	item    string
	aliases []string
}

var categoryTable = [numCategories]categoryInfo{
	ChocolateBar: {key: "chocolate_bars", item: "chocolate bar", aliases: []string{"chocolate", "chocolates"}},
	WaterBottle:  {key: "water_bottles", item: "water bottle", aliases: []string{"water"}},
	ChipsPacket:  {key: "chips_packets", item: "chips packet", aliases: []string{"chips"}},
}

var categoryLookup = func() map[string]Category {
	out := make(map[string]Category)
	for c, info := range categoryTable {
		out[info.key] = Category(c)
		out[info.item] = Category(c)
		for _, alias := range info.aliases {
			out[alias] = Category(c)
		}
	}
	return out
}()

// Categories returns every tracked category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory translates an external identifier into a Category.
func ParseCategory(name string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if c, ok := categoryLookup[normalized]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

func (c Category) Valid() bool {
	return c < numCategories
}

// Key is the identifier used for counts on the wire and in storage.
func (c Category) Key() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryTable[c].key
}

// ItemName is the singular display name, e.g. "water bottle".
func (c Category) ItemName() string {
	if !c.Valid() {
		return c.Key()
	}
	return categoryTable[c].item
}

func (c Category) String() string {
	return c.Key()
}

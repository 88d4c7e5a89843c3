package room

import "github.com/samber/lo"

// MenuItem is one priced line of the room's menu. The ID is the item's
// position in the menu, as a string.
type MenuItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Room is a bill-splitting chat session: a title and an ordered menu.
type Room struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Menu  []MenuItem `json:"menu"`
}

// Total returns the sum of all menu item prices.
func (r Room) Total() float64 {
	return lo.SumBy(r.Menu, func(it MenuItem) float64 { return it.Price })
}

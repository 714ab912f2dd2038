package view

import (
	"strings"
)

// Icon is a glyph name understood by the clients.
type Icon string

const (
	IconShoppingCart   Icon = "ShoppingCart"
	IconUtensils       Icon = "Utensils"
	IconFuel           Icon = "Fuel"
	IconShoppingBag    Icon = "ShoppingBag"
	IconCreditCard     Icon = "CreditCard"
	IconHeart          Icon = "Heart"
	IconGamepad        Icon = "Gamepad2"
	IconCar            Icon = "Car"
	IconZap            Icon = "Zap"
	IconHome           Icon = "Home"
	IconPlane          Icon = "Plane"
	IconGift           Icon = "Gift"
	IconBook           Icon = "Book"
	IconCoffee         Icon = "Coffee"
	IconMoreHorizontal Icon = "MoreHorizontal"

	// DefaultIcon is shown for unknown or empty icon keys.
	DefaultIcon = IconMoreHorizontal
)

var icons = map[string]Icon{}

func init() {
	for _, i := range []Icon{
		IconShoppingCart, IconUtensils, IconFuel, IconShoppingBag, IconCreditCard,
		IconHeart, IconGamepad, IconCar, IconZap, IconHome, IconPlane, IconGift,
		IconBook, IconCoffee, IconMoreHorizontal,
	} {
		icons[strings.ToLower(string(i))] = i
	}
	// Older clients stored these spellings.
	icons["gamepad"] = IconGamepad
	icons["more"] = IconMoreHorizontal
}

// ResolveIcon maps a stored icon key to a known Icon, case-insensitively.
func ResolveIcon(key string) Icon {
	if i, ok := icons[strings.ToLower(strings.TrimSpace(key))]; ok {
		return i
	}
	return DefaultIcon
}

// Palette is cycled through for categories without a usable colour.
var Palette = []string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b", "#8b5cf6", "#ec4899", "#06b6d4",
	"#f97316", "#14b8a6", "#a855f7", "#84cc16", "#f43f5e", "#0ea5e9", "#eab308",
}

var tailwind = map[string]string{
	"green":  "#22c55e",
	"orange": "#f97316",
	"blue":   "#3b82f6",
	"pink":   "#ec4899",
	"purple": "#a855f7",
	"red":    "#ef4444",
	"indigo": "#6366f1",
	"cyan":   "#06b6d4",
	"yellow": "#eab308",
	"gray":   "#6b7280",
	"teal":   "#14b8a6",
	"amber":  "#f59e0b",
}

// ResolveColor returns a hex colour for a stored value: hex colours pass
// through, Tailwind "bg-<name>-500" classes are translated, and anything else
// falls back to Palette[index].
func ResolveColor(stored string, index int) string {
	stored = strings.TrimSpace(stored)
	if isHexColor(stored) {
		return strings.ToLower(stored)
	}
	if name, ok := strings.CutPrefix(stored, "bg-"); ok {
		if i := strings.IndexByte(name, '-'); i > 0 {
			name = name[:i]
		}
		if hex, ok := tailwind[name]; ok {
			return hex
		}
	}
	if index < 0 {
		index = -index
	}
	return Palette[index%len(Palette)]
}

func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

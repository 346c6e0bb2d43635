package social

import "errors"

// ErrNationNotFound is returned when a nation is unknown or its town name
// pool is exhausted. Callers drop the town build rather than recycle names.
var ErrNationNotFound = errors.New("nation not found")

// Nation owns a finite pool of town names consumed in fixed order.
type Nation struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	townNames []string
	nextName  int
}

func NewNation(name, color string, townNames []string) *Nation {
	return &Nation{Name: name, Color: color, townNames: townNames}
}

// NextTownName draws the next unused town name. The pool is consumed
// monotonically; exhaustion is an error, never a reuse.
func (n *Nation) NextTownName() (string, error) {
	if n.nextName >= len(n.townNames) {
		return "", ErrNationNotFound
	}
	name := n.townNames[n.nextName]
	n.nextName++
	return name, nil
}

// NamesUsed reports how many town names have been drawn, for persistence.
func (n *Nation) NamesUsed() int {
	return n.nextName
}

// SetNamesUsed restores the draw position after a load.
func (n *Nation) SetNamesUsed(used int) {
	if used > len(n.townNames) {
		used = len(n.townNames)
	}
	n.nextName = used
}

// DefaultNations is the shipped nation roster.
func DefaultNations() []*Nation {
	return []*Nation{
		NewNation("Aragon", "#c8a020", []string{
			"Puerto Alto", "Villanueva", "Costaverde", "San Felipe", "Monteclaro",
			"Riogrande", "Piedras Negras", "Valdemar", "Cabo Sereno", "Dos Rios",
			"La Frontera", "Sierra Vista", "Puente Viejo", "El Mirador", "Santa Cruz",
		}),
		NewNation("Kalmar", "#2040a0", []string{
			"Nyhavn", "Stenvik", "Fiskeby", "Granholm", "Vasterdal",
			"Ostersund", "Lillesand", "Kungsberg", "Tornedal", "Havsborg",
			"Bjornstad", "Silverfors", "Malarvik", "Norrhamn", "Eketorp",
		}),
		NewNation("Srivijaya", "#a02020", []string{
			"Kota Baru", "Tanjung Emas", "Muara Indah", "Pelabuhan Ratu", "Bukit Tinggi",
			"Sungai Lima", "Teluk Dalam", "Pasir Putih", "Gunung Api", "Selat Jaya",
			"Pulau Mas", "Kuala Sentosa", "Bandar Lama", "Ujung Karang", "Labuan Permai",
		}),
		NewNation("Ashanti", "#208040", []string{
			"Obuasi", "Nkawkaw", "Bekwai", "Ejisu", "Mampong",
			"Konongo", "Juaso", "Offinso", "Agona", "Effiduase",
			"Tepa", "Kuntanase", "Bibiani", "Asokore", "Dunkwa",
		}),
	}
}

package dataset

import "github.com/mesh-intelligence/twentyq/pkg/types"

// seedColumns and seedRows are the built-in dataset written to an empty store.
var seedColumns = []string{
	"IsMammal", "CanFly", "IsAquatic", "IsPet", "IsCarnivore", "IsFoundInAfrica",
	"IsLarge", "HasFur", "CanBeDomesticated", "IsDangerous", "IsHerbivore",
	"HasWings", "IsNocturnal",
}

var seedRows = []struct {
	name  string
	cells []uint8
}{
	{"Dog", []uint8{1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 0, 0}},
	{"Cat", []uint8{1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 0, 1}},
	{"Lion", []uint8{1, 0, 0, 0, 1, 1, 1, 1, 0, 1, 0, 0, 1}},
	{"Eagle", []uint8{0, 1, 0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0}},
	{"Shark", []uint8{0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 0, 0, 0}},
	{"Elephant", []uint8{1, 0, 0, 0, 0, 1, 1, 0, 0, 0, 1, 0, 0}},
	{"Frog", []uint8{0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1}},
	{"Bat", []uint8{1, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 1}},
}

// Seed returns a fresh copy of the built-in animal dataset.
func Seed() *types.Matrix {
	m, err := types.NewMatrix(seedColumns)
	if err != nil {
		panic(err)
	}
	for _, r := range seedRows {
		values := make(map[string]uint8, len(seedColumns))
		for j, c := range seedColumns {
			values[c] = r.cells[j]
		}
		if err := m.Append(r.name, values); err != nil {
			panic(err)
		}
	}
	return m
}

// Package mapconfig loads the game's map topology and tuning knobs from
// a single JSON config file, mirroring the reference server's
// json_loader.cpp and model_json.cpp. It translates the on-disk schema
// (roads keyed by x0/y0/[x1|y1], buildings as x/y/w/h rectangles,
// offices with an id and an offset) into the internal/dogs types and
// assembles a ready-to-use *dogs.Game.
package mapconfig

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/tarakan-labs/doggame/internal/dogs"
)

// roadDoc disambiguates horizontal vs vertical roads by the presence
// of "x1" in the JSON object, exactly as model_json.cpp does.
type roadDoc struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type buildingDoc struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeDoc struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type lootTypeDoc struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Type     string   `json:"type"`
	Rotation *int     `json:"rotation,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Value    *int     `json:"value"`
}

type mapDoc struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Roads              []roadDoc     `json:"roads"`
	Buildings          []buildingDoc `json:"buildings"`
	Offices            []officeDoc   `json:"offices"`
	LootTypes          []lootTypeDoc `json:"lootTypes"`
	DogSpeed           *float64      `json:"dogSpeed,omitempty"`
	DefaultBagCapacity *int          `json:"defaultBagCapacity,omitempty"`
}

type lootGeneratorDoc struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type configDoc struct {
	DefaultDogSpeed    float64          `json:"defaultDogSpeed"`
	DefaultBagCapacity *int             `json:"defaultBagCapacity,omitempty"`
	DogRetirementTime  float64          `json:"dogRetirementTime"`
	LootGeneratorConfig lootGeneratorDoc `json:"lootGeneratorConfig"`
	Maps               []mapDoc         `json:"maps"`
}

func (r roadDoc) toRoad() dogs.Road {
	if r.X1 != nil {
		return dogs.NewRoad(dogs.Point{X: r.X0, Y: r.Y0}, dogs.Point{X: *r.X1, Y: r.Y0})
	}
	y1 := r.Y0
	if r.Y1 != nil {
		y1 = *r.Y1
	}
	return dogs.NewRoad(dogs.Point{X: r.X0, Y: r.Y0}, dogs.Point{X: r.X0, Y: y1})
}

func (b buildingDoc) toBuilding() dogs.Building {
	return dogs.Building{
		Position: dogs.Point{X: b.X, Y: b.Y},
		Size:     dogs.Size{Width: b.W, Height: b.H},
	}
}

func (o officeDoc) toOffice() dogs.Office {
	return dogs.Office{
		ID:       o.ID,
		Position: dogs.Point{X: o.X, Y: o.Y},
		Offset:   dogs.Offset{DX: o.OffsetX, DY: o.OffsetY},
	}
}

func (l lootTypeDoc) toLootType() dogs.LootType {
	return dogs.LootType{
		Name:     l.Name,
		File:     l.File,
		Type:     l.Type,
		Rotation: l.Rotation,
		Color:    l.Color,
		Scale:    l.Scale,
		Value:    l.Value,
	}
}

// Load reads and parses the config file at path, building a fully
// populated *dogs.Game. randomSpawn controls whether new dogs appear
// at random points on their map's roads (true) or always at the first
// road's start (false, matching the reference server's default).
func Load(path string, randomSpawn bool) (*dogs.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapconfig: read %s: %w", path, err)
	}

	var doc configDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mapconfig: parse %s: %w", path, err)
	}

	lootPeriod := time.Duration(doc.LootGeneratorConfig.Period * float64(time.Second))
	lootProbability := doc.LootGeneratorConfig.Probability

	game := dogs.NewGame(func() *dogs.LootGenerator {
		return dogs.NewLootGenerator(lootPeriod, lootProbability, rand.Float64)
	})
	game.SetDefaultSpeed(doc.DefaultDogSpeed)
	if doc.DefaultBagCapacity != nil {
		game.SetDefaultBagSize(*doc.DefaultBagCapacity)
	}
	game.SetRetirementTime(doc.DogRetirementTime)
	game.SetRandomSpawn(randomSpawn)

	for _, md := range doc.Maps {
		gameMap, err := buildMap(md, game)
		if err != nil {
			return nil, fmt.Errorf("mapconfig: map %q: %w", md.ID, err)
		}
		if err := game.AddMap(gameMap); err != nil {
			return nil, fmt.Errorf("mapconfig: map %q: %w", md.ID, err)
		}
	}

	return game, nil
}

func buildMap(md mapDoc, game *dogs.Game) (*dogs.Map, error) {
	roads := make([]dogs.Road, 0, len(md.Roads))
	for _, r := range md.Roads {
		roads = append(roads, r.toRoad())
	}

	buildings := make([]dogs.Building, 0, len(md.Buildings))
	for _, b := range md.Buildings {
		buildings = append(buildings, b.toBuilding())
	}

	offices := make([]dogs.Office, 0, len(md.Offices))
	for _, o := range md.Offices {
		offices = append(offices, o.toOffice())
	}

	loots := make([]dogs.LootType, 0, len(md.LootTypes))
	for _, l := range md.LootTypes {
		loots = append(loots, l.toLootType())
	}

	speed := game.DefaultSpeed()
	if md.DogSpeed != nil {
		speed = *md.DogSpeed
	}
	bagSize := game.DefaultBagSize()
	if md.DefaultBagCapacity != nil {
		bagSize = *md.DefaultBagCapacity
	}

	return &dogs.Map{
		ID:          md.ID,
		Name:        md.Name,
		Roads:       roads,
		Buildings:   buildings,
		Offices:     offices,
		LootCatalog: loots,
		Speed:       speed,
		BagCapacity: bagSize,
	}, nil
}

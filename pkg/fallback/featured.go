package fallback

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

// FeaturedRace is a session known to have data available
type FeaturedRace struct {
	model.RaceRef `yaml:",inline"`
	Name          string `json:"name" yaml:"name"`
}

//nolint:lll // readability
var DefaultFeaturedRaces = []FeaturedRace{
	{RaceRef: model.RaceRef{Year: 2023, Track: "Silverstone", Session: "Q"}, Name: "Silverstone Qualifying 2023"},
	{RaceRef: model.RaceRef{Year: 2024, Track: "Monaco", Session: "R"}, Name: "Monaco Race 2024"},
	{RaceRef: model.RaceRef{Year: 2023, Track: "Monza", Session: "R"}, Name: "Monza Race 2023"},
	{RaceRef: model.RaceRef{Year: 2024, Track: "Spa", Session: "Q"}, Name: "Spa Qualifying 2024"},
	{RaceRef: model.RaceRef{Year: 2023, Track: "Hungary", Session: "R"}, Name: "Hungary Race 2023"},
}

var ErrNoFeaturedRaces = errors.New("no featured races")

type featuredFile struct {
	Races []FeaturedRace `yaml:"races"`
}

// LoadFeaturedRaces reads a yaml file of the form
//
//	races:
//	  - year: 2023
//	    track: Monza
//	    session: R
//	    name: Monza Race 2023
func LoadFeaturedRaces(file string) ([]FeaturedRace, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseFeaturedRaces(data)
}

func ParseFeaturedRaces(data []byte) ([]FeaturedRace, error) {
	var f featuredFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse featured races: %w", err)
	}
	if len(f.Races) == 0 {
		return nil, ErrNoFeaturedRaces
	}
	for i, r := range f.Races {
		if r.Track == "" || r.Session == "" || r.Year == 0 {
			return nil, fmt.Errorf("featured race #%d: year, track and session are required", i+1)
		}
		if r.Name == "" {
			f.Races[i].Name = r.RaceRef.String()
		}
	}
	return f.Races, nil
}

// PickFeatured returns a random entry of races (DefaultFeaturedRaces if empty)
func PickFeatured(races []FeaturedRace) FeaturedRace {
	if len(races) == 0 {
		races = DefaultFeaturedRaces
	}
	return lo.Sample(races)
}

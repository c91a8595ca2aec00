// Package seed loads item and block fixtures from YAML files, used by the
// CLI to populate local databases.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
)

// Fixture is the YAML root document.
type Fixture struct {
	Items  []ItemFixture  `yaml:"items"`
	Blocks []BlockFixture `yaml:"blocks"`
}

// ItemFixture mirrors model.Item with YAML-friendly optional fields.
type ItemFixture struct {
	ItemID           string     `yaml:"itemId"`
	Kind             string     `yaml:"kind"`
	OwnerID          string     `yaml:"ownerId"`
	Title            string     `yaml:"title"`
	EstimatedMinutes int        `yaml:"estimatedMinutes"`
	Priority         int        `yaml:"priority"`
	Theme            string     `yaml:"theme"`
	RRule            string     `yaml:"rrule"`
	DTStart          *time.Time `yaml:"dtstart"`
	NextDue          *time.Time `yaml:"nextDue"`
	Status           any        `yaml:"status"`
}

// BlockFixture mirrors model.Block.
type BlockFixture struct {
	BlockID              string    `yaml:"blockId"`
	OwnerID              string    `yaml:"ownerId"`
	Start                time.Time `yaml:"start"`
	End                  time.Time `yaml:"end"`
	Persona              string    `yaml:"persona"`
	Theme                string    `yaml:"theme"`
	DailyCapacityMinutes int       `yaml:"dailyCapacityMinutes"`
}

// Load parses a fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes fixture YAML and validates required fields.
func Parse(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, it := range f.Items {
		if it.ItemID == "" || it.Title == "" {
			return nil, fmt.Errorf("items[%d]: itemId and title are required", i)
		}
		switch model.ItemKind(it.Kind) {
		case model.KindTask, model.KindStory, model.KindChore:
		default:
			return nil, fmt.Errorf("items[%d]: unknown kind %q", i, it.Kind)
		}
	}
	for i, b := range f.Blocks {
		if b.BlockID == "" || b.OwnerID == "" {
			return nil, fmt.Errorf("blocks[%d]: blockId and ownerId are required", i)
		}
		if !b.End.After(b.Start) {
			return nil, fmt.Errorf("blocks[%d]: end must be after start", i)
		}
		switch model.Persona(b.Persona) {
		case model.PersonaPersonal, model.PersonaWork:
		default:
			return nil, fmt.Errorf("blocks[%d]: unknown persona %q", i, b.Persona)
		}
	}
	return &f, nil
}

// Apply upserts the fixture into the store and returns the item and block
// counts written.
func (f *Fixture) Apply(ctx context.Context, s store.Store) (int, int, error) {
	now := time.Now().UTC()

	items := make([]*model.Item, 0, len(f.Items))
	for _, fx := range f.Items {
		it := &model.Item{
			ItemID:           fx.ItemID,
			Kind:             model.ItemKind(fx.Kind),
			OwnerID:          fx.OwnerID,
			Title:            fx.Title,
			EstimatedMinutes: fx.EstimatedMinutes,
			Priority:         fx.Priority,
			Status:           fx.Status,
			DTStart:          fx.DTStart,
			NextDue:          fx.NextDue,
			CreationTime:     now,
			UpdateTime:       now,
		}
		if fx.Theme != "" {
			theme := fx.Theme
			it.ThemeID = &theme
		}
		if fx.RRule != "" {
			rrule := fx.RRule
			it.RRule = &rrule
		}
		items = append(items, it)
	}

	blocks := make([]model.Block, 0, len(f.Blocks))
	for _, fx := range f.Blocks {
		b := model.Block{
			BlockID:              fx.BlockID,
			OwnerID:              fx.OwnerID,
			Start:                fx.Start,
			End:                  fx.End,
			Persona:              model.Persona(fx.Persona),
			DailyCapacityMinutes: fx.DailyCapacityMinutes,
		}
		if fx.Theme != "" {
			theme := fx.Theme
			b.ThemeID = &theme
		}
		blocks = append(blocks, b)
	}

	for _, chunk := range chunkItems(items, store.MaxBatchSize) {
		if err := s.Items().Upsert(ctx, chunk); err != nil {
			return 0, 0, err
		}
	}
	for _, chunk := range chunkBlocks(blocks, store.MaxBatchSize) {
		if err := s.Blocks().Upsert(ctx, chunk); err != nil {
			return 0, 0, err
		}
	}
	return len(items), len(blocks), nil
}

func chunkItems(in []*model.Item, size int) [][]*model.Item {
	var out [][]*model.Item
	for len(in) > 0 {
		n := size
		if len(in) < n {
			n = len(in)
		}
		out = append(out, in[:n])
		in = in[n:]
	}
	return out
}

func chunkBlocks(in []model.Block, size int) [][]model.Block {
	var out [][]model.Block
	for len(in) > 0 {
		n := size
		if len(in) < n {
			n = len(in)
		}
		out = append(out, in[:n])
		in = in[n:]
	}
	return out
}

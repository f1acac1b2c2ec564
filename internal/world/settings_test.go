package world

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*GenerationSettings)
		field  string
	}{
		{"огромный регион", func(s *GenerationSettings) { s.RegionWidth = MaxRegionWidth + 1 }, "region_width"},
		{"огромный мир", func(s *GenerationSettings) { s.WorldWidth = MaxWorldWidth + 1 }, "world_width"},
		{"переполнение int", func(s *GenerationSettings) { s.WorldWidth = int(^uint(0) >> 1) }, "world_width"},
		{"нет внутренней области", func(s *GenerationSettings) { s.RegionWidth = 2 }, "region_width"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := scenarioSettings()
			tc.mutate(&s)

			err := s.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}

	s := scenarioSettings()
	s.RegionWidth = MaxRegionWidth
	s.WorldWidth = MaxWorldWidth
	assert.NoError(t, s.Validate(), "границы включительные")
}

func TestWorldBuilderRejectsOversizedWorld(t *testing.T) {
	s := worldSettings()
	s.WorldWidth = MaxWorldWidth * 4
	w := NewWorldBuilder(s, WithLogger(quietLogger()))

	assert.ErrorIs(t, w.Generate(context.Background()), ErrConfiguration)
	assert.Equal(t, StateUninitialized, w.State())
}

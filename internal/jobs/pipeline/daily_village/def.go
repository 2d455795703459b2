package daily_village

import (
	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/modules/village/catalog"
	"github.com/yungbote/pinegate-backend/internal/modules/village/steps"
	"github.com/yungbote/pinegate-backend/internal/platform/directory"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
)

const Type = "daily_village"

type Options struct {
	MaxConcurrency int
	Rand           steps.Rand
	// Catalog defaults to the embedded quest catalog.
	Catalog []catalog.Quest
}

type Pipeline struct {
	log       *logger.Logger
	repo      repos.Set
	directory directory.Counter
	gen       narration.Generator
	opts      Options
}

func New(baseLog *logger.Logger, repo repos.Set, dir directory.Counter, gen narration.Generator, opts Options) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", Type),
		repo:      repo,
		directory: dir,
		gen:       gen,
		opts:      opts,
	}
}

func (p *Pipeline) Type() string { return Type }

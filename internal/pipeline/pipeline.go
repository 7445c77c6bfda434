// Package pipeline models the deployment as a finite sequence of named
// stages with a persisted completion marker derived from the checkpoint
// record. Re-running the pipeline consults the record and skips the
// irreversible stages that already completed; that is the system's sole
// resumability mechanism.
package pipeline

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"kira-treasury-go/internal/deployment"
)

// Stage names one pipeline step. The order of Stages() is the only
// valid execution order.
type Stage string

const (
	StageWallet   Stage = "wallet"
	StageTreasury Stage = "treasury"
	StageAsset    Stage = "asset"
	StageFunding  Stage = "funding"
	StageVerify   Stage = "verify"
)

// Stages returns the fixed execution order.
func Stages() []Stage {
	return []Stage{StageWallet, StageTreasury, StageAsset, StageFunding, StageVerify}
}

// Completed derives the finished stages from which record fields are
// populated. A nil record means nothing beyond wallet provisioning can
// have happened.
func Completed(state *deployment.State) []Stage {
	var done []Stage
	if state.HasTreasury() {
		done = append(done, StageTreasury)
	}
	// The asset stage spans two transactions; it only counts as done
	// once the distribution landed too, so a run that minted but failed
	// to distribute resumes at the transfer instead of being skipped.
	if state.HasAsset() && state.HasDistribution() {
		done = append(done, StageAsset)
	}
	if state.HasFunding() {
		done = append(done, StageFunding)
	}
	return done
}

// irreversible marks the stages that submit fee-consuming creation
// transactions and therefore must never re-run once checkpointed.
// Funding and verification are legitimately re-runnable.
func irreversible(stage Stage) bool {
	return stage == StageTreasury || stage == StageAsset
}

// Pipeline dispatches stages to registered runners. Each runner loads
// the checkpoint record itself; stages share no in-memory state, so any
// stage is independently re-runnable as its own process.
type Pipeline struct {
	store *deployment.Store
	steps map[Stage]func(context.Context) error
}

func New(store *deployment.Store) *Pipeline {
	return &Pipeline{
		store: store,
		steps: make(map[Stage]func(context.Context) error),
	}
}

// Register binds a runner to a stage.
func (p *Pipeline) Register(stage Stage, run func(context.Context) error) {
	p.steps[stage] = run
}

// Run executes one stage. An irreversible stage whose checkpoint fields
// are already populated is skipped without invoking its runner.
func (p *Pipeline) Run(ctx context.Context, stage Stage) error {
	run, ok := p.steps[stage]
	if !ok {
		return errors.Errorf("no runner registered for stage %q", stage)
	}

	if irreversible(stage) {
		state, err := p.store.Load()
		if err != nil && !errors.Is(err, deployment.ErrNotFound) {
			return err
		}
		if state != nil {
			for _, done := range Completed(state) {
				if done == stage {
					log.Printf("pipeline: stage %q already completed, skipping", stage)
					return nil
				}
			}
		}
	}

	if err := run(ctx); err != nil {
		return errors.Wrapf(err, "stage %q failed", stage)
	}
	return nil
}

// RunAll executes every stage in the fixed order, stopping at the first
// failure. Completed irreversible stages are skipped, so RunAll resumes
// a partially finished deployment from where it halted.
func (p *Pipeline) RunAll(ctx context.Context) error {
	for _, stage := range Stages() {
		if err := p.Run(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

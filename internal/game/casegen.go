package game

import (
	"context"
	"github.com/myrjola/verdict/internal/ai"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/models"
	"github.com/myrjola/verdict/internal/random"
	"time"
)

// Case is everything generated for a new game before it is persisted.
type Case struct {
	Facts     models.CaseFacts
	Dossier   string
	Defendant models.DefendantIdentity
}

// CaseGenerator draws the verdict and generates the hidden facts, the player dossier, and the defendant thread.
type CaseGenerator struct {
	generator Generator
	history   HistoryService
	coin      random.Coin
	timeout   time.Duration
}

func NewCaseGenerator(generator Generator, history HistoryService, coin random.Coin, timeout time.Duration) *CaseGenerator {
	return &CaseGenerator{
		generator: generator,
		history:   history,
		coin:      coin,
		timeout:   timeout,
	}
}

// CreateCase performs two generations and one thread creation. It has no other side effects; any failure aborts.
func (g *CaseGenerator) CreateCase(ctx context.Context) (Case, error) {
	verdict, err := g.drawVerdict()
	if err != nil {
		return Case{}, err
	}

	objectiveFacts, err := g.generate(ctx, objectiveFactsSystemPrompt(verdict), objectiveFactsInstruction(verdict))
	if err != nil {
		return Case{}, upstream(err, "generate objective facts")
	}
	facts := models.CaseFacts{TrueVerdict: verdict, ObjectiveFacts: objectiveFacts}

	dossier, err := g.generate(ctx, dossierSystemPrompt(facts), dossierInstruction)
	if err != nil {
		return Case{}, upstream(err, "generate dossier")
	}

	threadCtx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	defendant, err := g.history.CreateThread(threadCtx)
	if err != nil {
		return Case{}, upstream(err, "create defendant thread")
	}

	return Case{
		Facts:     facts,
		Dossier:   dossier,
		Defendant: defendant,
	}, nil
}

func (g *CaseGenerator) drawVerdict() (models.Verdict, error) {
	guilty, err := g.coin.Flip()
	if err != nil {
		return "", errors.Wrap(err, "flip coin")
	}
	if guilty {
		return models.VerdictGuilty, nil
	}
	return models.VerdictInnocent, nil
}

func (g *CaseGenerator) generate(ctx context.Context, system, instruction string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	return g.generator.Generate(ctx, system, []ai.Message{{Role: ai.RoleUser, Content: instruction}})
}

// Package learning folds corrections into the dataset and replaces the model.
//
// Every change runs the same pipeline under one writer lock: clone the
// current matrix, mutate the clone, train on it, persist it, then publish the
// new dataset and model. A failure at any step leaves both untouched.
package learning

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
	"github.com/mesh-intelligence/twentyq/internal/metrics"
	"github.com/mesh-intelligence/twentyq/internal/model"
	"github.com/mesh-intelligence/twentyq/internal/question"
	"github.com/mesh-intelligence/twentyq/internal/tree"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Coordinator is the single writer for the dataset and model.
type Coordinator struct {
	mu      sync.Mutex
	data    *dataset.Store
	models  *model.Handle
	trainer tree.Trainer
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Bootstrap trains the first model from the current dataset and returns a
// Coordinator publishing through a new Handle.
func Bootstrap(data *dataset.Store, trainer tree.Trainer, log *zap.Logger, met *metrics.Metrics) (*Coordinator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{data: data, trainer: trainer, log: log.Named("learning"), metrics: met}
	mdl, err := c.train(data.Snapshot())
	if err != nil {
		return nil, err
	}
	c.models = model.NewHandle(mdl)
	met.SetEntities(data.Len())
	return c, nil
}

// Models returns the handle sessions read the current model from.
func (c *Coordinator) Models() *model.Handle { return c.models }

// Exists reports whether an entity is already in the dataset.
func (c *Coordinator) Exists(name string) bool { return c.data.Has(name) }

// Columns returns the current attribute columns in order.
func (c *Coordinator) Columns() []string { return c.data.Columns() }

// ParseQuestion maps question text to an attribute name.
func (c *Coordinator) ParseQuestion(text string) (string, error) {
	return question.Parse(text)
}

// LearnExisting records a distinguishing question between two entities that
// are both already in the dataset. The attribute is created with a 0
// backfill if it is new; the correct entity gets Answer and the wrong entity
// gets its complement.
func (c *Coordinator) LearnExisting(corr types.Correction) error {
	if corr.Question == "" {
		return types.ErrQuestionRequired
	}
	attr, err := question.Parse(corr.Question)
	if err != nil {
		return err
	}
	return c.run(metrics.PathExisting, func(m *types.Matrix) error {
		if !m.Has(corr.Correct) {
			return fmt.Errorf("correct entity %q: %w", corr.Correct, types.ErrUnknownEntity)
		}
		return distinguish(m, corr.Correct, corr.Wrong, attr, corr.Answer)
	})
}

// LearnNew appends a new entity with the given attribute values (missing
// columns read as 0). If corr carries a question, it is applied in the same
// commit against corr.Wrong.
func (c *Coordinator) LearnNew(name string, values map[string]uint8, corr types.Correction) error {
	var attr string
	if corr.Question != "" {
		var err error
		if attr, err = question.Parse(corr.Question); err != nil {
			return err
		}
	}
	return c.run(metrics.PathNew, func(m *types.Matrix) error {
		if err := m.Append(name, values); err != nil {
			return err
		}
		if attr == "" {
			return nil
		}
		return distinguish(m, name, corr.Wrong, attr, corr.Answer)
	})
}

// Replace swaps the whole dataset, as an import does.
func (c *Coordinator) Replace(next *types.Matrix) error {
	return c.run(metrics.PathImport, func(m *types.Matrix) error {
		*m = *next.Clone()
		return nil
	})
}

// Retrain rebuilds the model from the current dataset without changing it.
func (c *Coordinator) Retrain() (*model.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mdl, err := c.train(c.data.Snapshot())
	if err != nil {
		return nil, err
	}
	c.models.Store(mdl)
	c.metrics.Committed(metrics.PathRetrain)
	return mdl, nil
}

func (c *Coordinator) run(path string, mutate func(m *types.Matrix) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.data.Snapshot()
	if err := mutate(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	mdl, err := c.train(next)
	if err != nil {
		return err
	}
	if err := c.data.Commit(next); err != nil {
		return err
	}
	c.models.Store(mdl)

	c.metrics.Committed(path)
	c.metrics.SetEntities(next.Len())
	c.log.Info("model replaced",
		zap.String("path", path),
		zap.String("version", mdl.Version),
		zap.Int("entities", next.Len()),
		zap.Int("attributes", next.NumColumns()),
		zap.Int("depth", mdl.Tree.MaxDepth()))
	return nil
}

func (c *Coordinator) train(m *types.Matrix) (*model.Model, error) {
	start := time.Now()
	mdl, err := model.Build(c.trainer, m)
	c.metrics.ObserveRetrain(time.Since(start))
	if err != nil {
		c.metrics.RetrainFailed()
		c.log.Error("retrain failed", zap.Error(err))
		return nil, fmt.Errorf("retraining: %w", err)
	}
	return mdl, nil
}

// distinguish sets attr so that correct and wrong differ on it.
func distinguish(m *types.Matrix, correct, wrong, attr string, answer uint8) error {
	if answer > 1 {
		return fmt.Errorf("answer %d: %w", answer, types.ErrInvalidValue)
	}
	if !m.Has(wrong) {
		return fmt.Errorf("wrong entity %q: %w", wrong, types.ErrUnknownEntity)
	}
	if types.NormalizeName(correct) == types.NormalizeName(wrong) {
		return fmt.Errorf("correct and wrong entity are both %q: %w", correct, types.ErrInvalidInput)
	}
	if _, err := m.AddColumn(attr); err != nil {
		return err
	}
	if err := m.Set(correct, attr, answer); err != nil {
		return err
	}
	return m.Set(wrong, attr, 1-answer)
}

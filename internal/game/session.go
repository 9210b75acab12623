// Package game implements the per-session state machine that drives the
// tree, the refinement ranker and the learning coordinator.
package game

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/metrics"
	"github.com/mesh-intelligence/twentyq/internal/model"
	"github.com/mesh-intelligence/twentyq/internal/question"
	"github.com/mesh-intelligence/twentyq/internal/ranker"
	"github.com/mesh-intelligence/twentyq/internal/tree"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// Learner applies corrections to the dataset and model.
type Learner interface {
	Exists(name string) bool
	Columns() []string
	ParseQuestion(text string) (string, error)
	LearnExisting(c types.Correction) error
	LearnNew(name string, values map[string]uint8, c types.Correction) error
}

// Session is one game. All methods are safe for concurrent use; calls are
// serialized. A session pins the model it was started against until the
// next Start.
type Session struct {
	mu      sync.Mutex
	id      string
	models  *model.Handle
	learner Learner
	log     *zap.Logger
	metrics *metrics.Metrics

	model   *model.Model
	phase   types.Phase
	node    int
	answers map[string]uint8
	asked   []string

	lastGuess   string
	secondGuess string

	refineQueue []string
	refineIndex int

	newEntity   string
	correction  types.Correction
	fillColumns []string
	fillIndex   int
	fillAnswers map[string]uint8
}

// NewSession returns an idle session.
func NewSession(id string, models *model.Handle, learner Learner, log *zap.Logger, met *metrics.Metrics) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		id:      id,
		models:  models,
		learner: learner,
		log:     log.Named("game").With(zap.String("session", id)),
		metrics: met,
	}
	s.reset()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() types.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start begins a new game against the current model.
func (s *Session) Start() (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mdl := s.models.Load()
	if mdl == nil {
		return s.response(), fmt.Errorf("no model loaded: %w", types.ErrInvalidState)
	}
	s.reset()
	s.model = mdl
	s.phase = types.PhasePlaying
	s.node = tree.Root
	s.metrics.GameStarted()
	s.log.Debug("game started", zap.String("model", mdl.Version))
	return s.present()
}

// Answer records the answer to the current tree question and advances.
func (s *Session) Answer(token string) (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhasePlaying || s.model.Tree.IsLeaf(s.node) {
		return s.response(), fmt.Errorf("answer in %s: %w", s.describe(), types.ErrInvalidState)
	}
	v, err := types.ParseAnswer(token)
	if err != nil {
		return s.response(), err
	}
	feature, _, err := s.model.FeatureOf(s.node)
	if err != nil {
		return s.fail(err)
	}
	next, err := s.model.Tree.Advance(s.node, v)
	if err != nil {
		return s.fail(err)
	}
	s.answers[feature] = v
	s.asked = append(s.asked, feature)
	s.node = next
	return s.present()
}

// Back undoes the last tree answer. The position is recomputed by replaying
// the remaining answers from the root; where a replayed feature is not the
// one tested at a node, the replay descends left without consuming it.
func (s *Session) Back() (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhasePlaying {
		return s.response(), fmt.Errorf("back in %s: %w", s.describe(), types.ErrInvalidState)
	}
	if len(s.asked) == 0 {
		return s.response(), types.ErrNoHistory
	}
	last := s.asked[len(s.asked)-1]
	s.asked = s.asked[:len(s.asked)-1]
	delete(s.answers, last)

	node := tree.Root
	for _, f := range s.asked {
		for !s.model.Tree.IsLeaf(node) {
			name, _, err := s.model.FeatureOf(node)
			if err != nil {
				return s.fail(err)
			}
			if name == f {
				if node, err = s.model.Tree.Advance(node, s.answers[f]); err != nil {
					return s.fail(err)
				}
				break
			}
			node = s.model.Tree.Left(node)
		}
	}
	s.node = node
	return s.present()
}

// StartRefining follows a rejected tree guess with the refine queue, or
// goes straight to the nearest-neighbour guess when nothing is left to ask.
func (s *Session) StartRefining() (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhasePlaying || !s.model.Tree.IsLeaf(s.node) {
		return s.response(), fmt.Errorf("start refining in %s: %w", s.describe(), types.ErrInvalidState)
	}
	s.phase = types.PhaseRefining
	s.refineQueue = ranker.Queue(s.model, s.answers)
	s.refineIndex = 0
	s.secondGuess = ""
	s.log.Debug("refining", zap.Strings("queue", s.refineQueue))
	return s.presentRefine()
}

// RefineAnswer records the answer to the current refine question.
func (s *Session) RefineAnswer(token string) (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseRefining || s.refineIndex >= len(s.refineQueue) {
		return s.response(), fmt.Errorf("refine answer in %s: %w", s.describe(), types.ErrInvalidState)
	}
	v, err := types.ParseAnswer(token)
	if err != nil {
		return s.response(), err
	}
	s.answers[s.refineQueue[s.refineIndex]] = v
	s.refineIndex++
	return s.presentRefine()
}

// RefineBack discards the last refine answer and asks that question again.
// It never steps back into tree questions.
func (s *Session) RefineBack() (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseRefining {
		return s.response(), fmt.Errorf("refine back in %s: %w", s.describe(), types.ErrInvalidState)
	}
	if s.refineIndex == 0 {
		return s.response(), types.ErrNoHistory
	}
	s.refineIndex--
	delete(s.answers, s.refineQueue[s.refineIndex])
	s.secondGuess = ""
	return s.presentRefine()
}

// StartLearning handles a rejected guess. wrong defaults to the guess on
// screen. For a known entity the distinguishing question is required; without
// one the response asks for it and nothing changes. For a new entity the
// session moves to filling_attributes and prompts for every column.
func (s *Session) StartLearning(correct, wrong, questionText, answer string) (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guessShown() {
		return s.response(), fmt.Errorf("learn in %s: %w", s.describe(), types.ErrInvalidState)
	}
	correct = types.CleanName(correct)
	if correct == "" {
		return s.response(), fmt.Errorf("correct answer: %w", types.ErrInvalidName)
	}
	if wrong = types.CleanName(wrong); wrong == "" {
		wrong = s.currentGuess()
	}
	corr := types.Correction{Correct: correct, Wrong: wrong}
	if questionText != "" {
		v, err := types.ParseAnswer(answer)
		if err != nil {
			return s.response(), err
		}
		if _, err := s.learner.ParseQuestion(questionText); err != nil {
			return s.response(), err
		}
		corr.Question, corr.Answer = questionText, v
		if !s.learner.Exists(wrong) {
			return s.response(), fmt.Errorf("wrong entity %q: %w", wrong, types.ErrUnknownEntity)
		}
		if types.NormalizeName(wrong) == types.NormalizeName(correct) {
			return s.response(), fmt.Errorf("correct and wrong entity are both %q: %w", correct, types.ErrInvalidInput)
		}
	}

	if s.learner.Exists(correct) {
		if corr.Question == "" {
			resp := s.response()
			resp.NeedsQuestion = true
			resp.Character = wrong
			return resp, nil
		}
		if err := s.learner.LearnExisting(corr); err != nil {
			return s.response(), err
		}
		s.log.Info("learned distinguishing question",
			zap.String("correct", correct), zap.String("wrong", wrong), zap.String("question", corr.Question))
		return s.finishLearning(), nil
	}

	columns := s.learner.Columns()
	if len(columns) == 0 {
		if err := s.learner.LearnNew(correct, nil, corr); err != nil {
			return s.response(), err
		}
		return s.finishLearning(), nil
	}
	s.phase = types.PhaseFillingAttributes
	s.newEntity = correct
	s.correction = corr
	s.fillColumns = columns
	s.fillIndex = 0
	s.fillAnswers = make(map[string]uint8, len(columns))
	return s.presentFill(), nil
}

// AttributeAnswer records one attribute of the new entity. After the last
// column the entity is committed and the session returns to idle.
func (s *Session) AttributeAnswer(token string) (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != types.PhaseFillingAttributes {
		return s.response(), fmt.Errorf("attribute answer in %s: %w", s.describe(), types.ErrInvalidState)
	}
	v, err := types.ParseAnswer(token)
	if err != nil {
		return s.response(), err
	}
	col := s.fillColumns[s.fillIndex]
	s.fillAnswers[col] = v
	s.fillIndex++
	if s.fillIndex < len(s.fillColumns) {
		return s.presentFill(), nil
	}
	if err := s.learner.LearnNew(s.newEntity, s.fillAnswers, s.correction); err != nil {
		s.fillIndex--
		delete(s.fillAnswers, col)
		return s.presentFill(), err
	}
	s.log.Info("learned new entity", zap.String("entity", s.newEntity), zap.Int("attributes", len(s.fillAnswers)))
	return s.finishLearning(), nil
}

// Confirm ends the game after a correct guess.
func (s *Session) Confirm() (types.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guessShown() {
		return s.response(), fmt.Errorf("confirm in %s: %w", s.describe(), types.ErrInvalidState)
	}
	s.log.Debug("guess confirmed", zap.String("guess", s.currentGuess()))
	s.metrics.Confirmed()
	s.reset()
	return s.response(), nil
}

func (s *Session) finishLearning() types.Response {
	s.reset()
	resp := s.response()
	resp.Learned = true
	return resp
}

// guessShown reports whether a guess is on screen: a tree leaf while
// playing, or any point of refining.
func (s *Session) guessShown() bool {
	switch s.phase {
	case types.PhasePlaying:
		return s.model.Tree.IsLeaf(s.node)
	case types.PhaseRefining:
		return true
	}
	return false
}

func (s *Session) currentGuess() string {
	if s.secondGuess != "" {
		return s.secondGuess
	}
	return s.lastGuess
}

// present renders the current tree position.
func (s *Session) present() (types.Response, error) {
	feature, leaf, err := s.model.FeatureOf(s.node)
	if err != nil {
		return s.fail(err)
	}
	resp := s.response()
	if leaf {
		guess, err := s.model.Predict(s.node)
		if err != nil {
			return s.fail(err)
		}
		s.lastGuess = guess
		s.metrics.Guess(metrics.GuessTree)
		resp.IsGuess = true
		resp.Character = guess
		return resp, nil
	}
	resp.Feature = feature
	resp.Question = s.model.Question(feature)
	return resp, nil
}

// presentRefine renders the next refine question or the second guess once
// the queue is exhausted.
func (s *Session) presentRefine() (types.Response, error) {
	resp := s.response()
	if s.refineIndex < len(s.refineQueue) {
		f := s.refineQueue[s.refineIndex]
		resp.Feature = f
		resp.Question = s.model.Question(f)
		return resp, nil
	}
	guess, err := ranker.NearestNeighbor(s.model.Matrix, s.answers)
	if err != nil {
		return s.fail(err)
	}
	s.secondGuess = guess
	s.metrics.Guess(metrics.GuessSecond)
	resp.IsGuess = true
	resp.IsSecondGuess = true
	resp.Character = guess
	return resp, nil
}

func (s *Session) presentFill() types.Response {
	resp := s.response()
	if s.fillIndex < len(s.fillColumns) {
		col := s.fillColumns[s.fillIndex]
		resp.Feature = col
		resp.Question = question.Format(col)
	}
	resp.Character = s.newEntity
	return resp
}

// response carries the flags every reply shares.
func (s *Session) response() types.Response {
	resp := types.Response{SessionID: s.id, Phase: s.phase}
	switch s.phase {
	case types.PhasePlaying:
		resp.CanGoBack = len(s.asked) > 0
	case types.PhaseRefining:
		resp.IsRefining = true
		resp.CanGoBack = s.refineIndex > 0
	case types.PhaseFillingAttributes:
		resp.IsFilling = true
	}
	return resp
}

// fail resets the session after the tree disagreed with its own feature
// list. The caller gets the error and an idle response.
func (s *Session) fail(err error) (types.Response, error) {
	if errors.Is(err, types.ErrTraversalInconsistency) {
		s.log.Error("traversal inconsistency, session reset", zap.Int("node", s.node), zap.Error(err))
	} else {
		s.log.Error("session reset", zap.Error(err))
	}
	s.reset()
	return s.response(), err
}

func (s *Session) reset() {
	s.model = nil
	s.phase = types.PhaseIdle
	s.node = tree.Root
	s.answers = make(map[string]uint8)
	s.asked = nil
	s.lastGuess = ""
	s.secondGuess = ""
	s.refineQueue = nil
	s.refineIndex = 0
	s.newEntity = ""
	s.correction = types.Correction{}
	s.fillColumns = nil
	s.fillIndex = 0
	s.fillAnswers = nil
}

func (s *Session) describe() string {
	return "phase " + string(s.phase)
}

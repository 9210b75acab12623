package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/game"
	"github.com/mesh-intelligence/twentyq/internal/model"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// SessionHeader selects the session a request acts on. Requests without it
// use the default session.
const SessionHeader = "X-Session-ID"

type answerRequest struct {
	Answer string `json:"answer"`
}

type learnRequest struct {
	WrongGuess        string `json:"wrong_guess"`
	CorrectAnswer     string `json:"correct_answer"`
	NewQuestion       string `json:"new_question"`
	NewQuestionAnswer string `json:"new_question_answer"`
}

// EntityView is one dataset row.
type EntityView struct {
	Name       string           `json:"name"`
	Attributes map[string]uint8 `json:"attributes"`
}

// FeatureView is one model feature with its question and importance.
type FeatureView struct {
	Name       string  `json:"name"`
	Question   string  `json:"question"`
	Importance float64 `json:"importance"`
}

// ModelView summarizes the current model.
type ModelView struct {
	Version   string        `json:"version"`
	TrainedAt time.Time     `json:"trained_at"`
	Entities  int           `json:"entities"`
	Depth     int           `json:"depth"`
	Leaves    int           `json:"leaves"`
	Features  []FeatureView `json:"features"`
}

// Handler serves the game operations over HTTP.
type Handler struct {
	sessions *game.Manager
	models   *model.Handle
	log      *zap.Logger
}

// NewHandler returns a Handler over sessions and the shared model.
func NewHandler(sessions *game.Manager, models *model.Handle, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, models: models, log: log.Named("httpapi")}
}

// RegisterRoutes mounts the API under r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.POST("/sessions", h.openSession)
		api.DELETE("/sessions/:id", h.closeSession)

		api.POST("/start", h.op((*game.Session).Start))
		api.POST("/answer", h.withAnswer((*game.Session).Answer))
		api.POST("/back", h.op((*game.Session).Back))
		api.POST("/start_refining", h.op((*game.Session).StartRefining))
		api.POST("/refine_answer", h.withAnswer((*game.Session).RefineAnswer))
		api.POST("/refine_back", h.op((*game.Session).RefineBack))
		api.POST("/learn", h.learn)
		api.POST("/attribute_answer", h.withAnswer((*game.Session).AttributeAnswer))
		api.POST("/confirm", h.op((*game.Session).Confirm))

		api.GET("/entities", h.listEntities)
		api.GET("/model", h.describeModel)
	}
}

func (h *Handler) session(c *gin.Context) (*game.Session, bool) {
	s, err := h.sessions.Get(c.GetHeader(SessionHeader))
	if err != nil {
		handleServiceError(c, h.log, err, nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) reply(c *gin.Context, resp types.Response, err error) {
	if err != nil {
		handleServiceError(c, h.log, err, &resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// op adapts a session operation without a request body.
func (h *Handler) op(fn func(*game.Session) (types.Response, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.session(c)
		if !ok {
			return
		}
		resp, err := fn(s)
		h.reply(c, resp, err)
	}
}

// withAnswer adapts a session operation that takes a yes/no token.
func (h *Handler) withAnswer(fn func(*game.Session, string) (types.Response, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			handleServiceError(c, h.log, types.ErrInvalidInput, nil)
			return
		}
		s, ok := h.session(c)
		if !ok {
			return
		}
		resp, err := fn(s, req.Answer)
		h.reply(c, resp, err)
	}
}

func (h *Handler) learn(c *gin.Context) {
	var req learnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, h.log, types.ErrInvalidInput, nil)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	resp, err := s.StartLearning(req.CorrectAnswer, req.WrongGuess, req.NewQuestion, req.NewQuestionAnswer)
	h.reply(c, resp, err)
}

func (h *Handler) openSession(c *gin.Context) {
	s, err := h.sessions.Open()
	if err != nil {
		handleServiceError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID()})
}

func (h *Handler) closeSession(c *gin.Context) {
	h.sessions.Close(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) listEntities(c *gin.Context) {
	m := h.models.Load().Matrix
	cols := m.Columns()
	out := make([]EntityView, 0, m.Len())
	for i := 0; i < m.Len(); i++ {
		attrs := make(map[string]uint8, len(cols))
		for j, col := range cols {
			attrs[col] = m.Cell(i, j)
		}
		out = append(out, EntityView{Name: m.Name(i), Attributes: attrs})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) describeModel(c *gin.Context) {
	mdl := h.models.Load()
	view := ModelView{
		Version:   mdl.Version,
		TrainedAt: mdl.TrainedAt,
		Entities:  mdl.Matrix.Len(),
		Depth:     mdl.Tree.MaxDepth(),
		Leaves:    mdl.Tree.NumLeaves(),
		Features:  make([]FeatureView, 0, len(mdl.Features)),
	}
	for _, f := range mdl.Features {
		view.Features = append(view.Features, FeatureView{Name: f, Question: mdl.Question(f), Importance: mdl.Importance(f)})
	}
	c.JSON(http.StatusOK, view)
}

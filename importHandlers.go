package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/extract"
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/utils"
	"github.com/mmdatafocus/quoting_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		token, user, err := models.Login(c.Request.Context(), &input)
		if err != nil {
			if errors.Is(err, models.ErrorInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			config.LogError(config.GetLogger(), "importHandlers.go", "loginHandler", "login", input.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":          user.ID,
				"username":    user.Username,
				"email":       user.Email,
				"business_id": user.BusinessId,
			},
		})
	}
}

// sessionView is the operator-facing snapshot of a reconciliation session.
type sessionView struct {
	ID                  string                       `json:"id"`
	Phase               workflow.SessionPhase        `json:"phase"`
	Meta                workflow.QuoteMeta           `json:"meta"`
	Candidates          []*workflow.PreviewCandidate `json:"candidates"`
	GlobalMarginPercent *decimal.Decimal             `json:"global_margin_percent,omitempty"`
	PendingCount        int                          `json:"pending_count"`
	CreatedAt           time.Time                    `json:"created_at"`
}

func viewOf(s *workflow.Session) sessionView {
	return sessionView{
		ID:                  s.ID,
		Phase:               s.Phase,
		Meta:                s.Meta,
		Candidates:          s.Surviving(),
		GlobalMarginPercent: s.GlobalMarginPercent,
		PendingCount:        len(s.PendingDecisions()),
		CreatedAt:           s.CreatedAt,
	}
}

// importParseHandler runs the synchronous half of the import flow: extract
// the uploaded spreadsheet, open a session, match every candidate against
// the component library and hand the session to review.
func importParseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		businessId, ok := requireBusiness(c)
		if !ok {
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "import.parse")
		defer span.End()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil || int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable or exceeds 10MB limit"})
			return
		}

		var extractor extract.SpreadsheetExtractor
		result, err := extractor.Parse(ctx, fileHeader.Filename, data)
		if err != nil {
			config.LogError(logger, "importHandlers.go", "importParseHandler", "parse", fileHeader.Filename, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not parse document"})
			return
		}
		if !result.Success {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    "no components extracted",
				"warnings": result.Warnings,
			})
			return
		}

		meta := workflow.QuoteMeta{
			DocumentType:    result.Metadata.DocumentType,
			SupplierName:    c.PostForm("supplier_name"),
			Currency:        result.Metadata.Currency,
			Confidence:      result.Confidence,
			SourceObjectKey: c.PostForm("source_object_key"),
		}
		if meta.SupplierName == "" {
			meta.SupplierName = result.Metadata.SupplierName
		}
		meta.QuoteDate = parseQuoteDate(c.PostForm("quote_date"), result.Metadata.QuoteDate)

		session := workflow.NewSession(businessId, meta, result.Components, models.ListComponentCategories)
		sessionRegistry.Put(session)

		session.Phase = workflow.PhaseMatching
		library, err := models.ListActiveComponents(ctx)
		if err != nil {
			config.LogError(logger, "importHandlers.go", "importParseHandler", "load library", businessId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load component library"})
			return
		}
		decisions, err := matcher.MatchAll(ctx, result.Components, library)
		if err != nil {
			config.LogError(logger, "importHandlers.go", "importParseHandler", "match", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "matching failed"})
			return
		}
		session.AttachDecisions(decisions)

		c.JSON(http.StatusOK, gin.H{
			"session":  viewOf(session),
			"warnings": result.Warnings,
		})
	}
}

func parseQuoteDate(formValue string, extracted *time.Time) time.Time {
	if formValue != "" {
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, formValue); err == nil {
				return t
			}
		}
	}
	if extracted != nil {
		return *extracted
	}
	return time.Now().UTC()
}

func sessionGetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := requireBusiness(c)
		if !ok {
			return
		}
		session, err := sessionRegistry.Get(c.Param("id"), businessId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, viewOf(session))
	}
}

type eventEnvelope struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

func decodeEvent(env eventEnvelope) (workflow.Event, error) {
	switch env.Type {
	case "edit":
		var e workflow.EditEvent
		return e, json.Unmarshal(env.Event, &e)
	case "delete":
		var e workflow.DeleteEvent
		return e, json.Unmarshal(env.Event, &e)
	case "decide":
		var e workflow.DecideEvent
		return e, json.Unmarshal(env.Event, &e)
	case "bulk_edit":
		var e workflow.BulkEditEvent
		return e, json.Unmarshal(env.Event, &e)
	case "global_margin":
		var e workflow.GlobalMarginEvent
		return e, json.Unmarshal(env.Event, &e)
	case "item_margin":
		var e workflow.ItemMarginEvent
		return e, json.Unmarshal(env.Event, &e)
	default:
		return nil, errors.New("unknown event type")
	}
}

// sessionEventsHandler applies one operator event to the session and returns
// the updated snapshot.
func sessionEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := requireBusiness(c)
		if !ok {
			return
		}
		session, err := sessionRegistry.Get(c.Param("id"), businessId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		var env eventEnvelope
		if err := c.ShouldBindJSON(&env); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		event, err := decodeEvent(env)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := session.Apply(event); err != nil {
			switch {
			case errors.Is(err, workflow.ErrorCandidateNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, workflow.ErrorWrongPhase):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, viewOf(session))
	}
}

func sessionCancelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := requireBusiness(c)
		if !ok {
			return
		}
		err := sessionRegistry.Cancel(c.Param("id"), businessId)
		switch {
		case err == nil:
			c.Status(http.StatusNoContent)
		case errors.Is(err, workflow.ErrorCancelTooLate):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		}
	}
}

// sessionFinalizeHandler persists the reviewed session. A redis lock keyed
// by business keeps concurrent finalizes from interleaving writes to the
// same component library.
func sessionFinalizeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		businessId, ok := requireBusiness(c)
		if !ok {
			return
		}
		session, err := sessionRegistry.Get(c.Param("id"), businessId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "import.finalize")
		defer span.End()

		lock, err := config.GetRedisLock().Obtain(config.GetRedisContext(), "finalize:"+businessId, 2*time.Minute, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				c.JSON(http.StatusConflict, gin.H{"error": "finalize already in progress"})
				return
			}
			config.LogError(logger, "importHandlers.go", "sessionFinalizeHandler", "obtain lock", session.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not obtain finalize lock"})
			return
		}
		defer lock.Release(config.GetRedisContext())

		result, err := finalizer.Finalize(ctx, session)
		if err != nil {
			var vErr *workflow.ValidationError
			switch {
			case errors.As(err, &vErr):
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":         vErr.Error(),
					"pending_count": vErr.PendingCount,
				})
			case errors.Is(err, workflow.ErrorWrongPhase):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				config.LogError(logger, "importHandlers.go", "sessionFinalizeHandler", "finalize", session.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "finalize failed"})
			}
			return
		}

		userId, _ := utils.GetUserIdFromContext(ctx)
		logger.WithFields(logrus.Fields{
			"session_id": session.ID,
			"user_id":    userId,
			"imported":   result.ImportedCount,
			"new":        result.NewCount,
			"updated":    result.UpdatedCount,
		}).Info("import finalized")

		c.JSON(http.StatusOK, result)
	}
}

func categoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireBusiness(c); !ok {
			return
		}
		categories, err := models.ListComponentCategories(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "importHandlers.go", "categoriesHandler", "list", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list categories"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}

func componentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireBusiness(c); !ok {
			return
		}
		var components []models.Component
		var err error
		if query := strings.TrimSpace(c.Query("q")); query != "" {
			components, err = models.SearchComponents(c.Request.Context(), query)
		} else {
			components, err = models.ListActiveComponents(c.Request.Context())
		}
		if err != nil {
			config.LogError(config.GetLogger(), "importHandlers.go", "componentsHandler", "list", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list components"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"components": components})
	}
}

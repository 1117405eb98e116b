// internal/interfaces/http/handlers/response.go
package handlers

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/your-org/elearning-storefront/internal/domain/checkout"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/middleware"
	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// Message is a user-visible notification the client renders as a toast
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// responder collects checkout feedback and navigation for one response
type responder struct {
	mu       sync.Mutex
	messages []Message
	redirect string
}

func (r *responder) add(level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

func (r *responder) Success(text string) { r.add("success", text) }
func (r *responder) Error(text string)   { r.add("error", text) }
func (r *responder) Info(text string)    { r.add("info", text) }

func (r *responder) GoTo(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirect = path
}

func (r *responder) body(data interface{}) gin.H {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := r.messages
	if messages == nil {
		messages = []Message{}
	}
	return gin.H{
		"data":     data,
		"messages": messages,
		"redirect": r.redirect,
	}
}

// uiFor builds the checkout UI of a request from its authentication state
func uiFor(c *gin.Context, r *responder) checkout.UI {
	ui := checkout.UI{Feedback: r, Navigator: r}
	if profile, ok := middleware.GetProfileFromContext(c); ok {
		ui.Auth = checkout.AuthContext{
			IsAuthenticated: true,
			User: checkout.User{
				ID:       profile.UserID,
				Email:    profile.Email,
				FullName: profile.FullName,
				Phone:    profile.Phone,
			},
		}
	}
	return ui
}

// respondError writes err with the status its kind maps to
func respondError(c *gin.Context, err error) {
	c.JSON(apperror.HTTPStatus(err), gin.H{
		"error": apperror.UserMessage(err),
	})
}

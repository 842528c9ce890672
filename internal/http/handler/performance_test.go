package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"replyloop.app/insight/internal/http/handler"
	"replyloop.app/insight/internal/queue"
	"replyloop.app/insight/internal/service"
	"replyloop.app/insight/internal/store"
)

var _ = Describe("PerformanceHandler", func() {
	var (
		router *gin.Engine
		svc    *mockPerformanceService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockPerformanceService{}
		h := handler.NewPerformanceHandler(svc)
		router.POST("/suggestions/:id/select", h.SelectSuggestion)
		router.POST("/sends", h.RecordSend)
	})

	postJSON := func(path string, body map[string]any) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("SelectSuggestion", func() {
		It("records the selection", func() {
			var gotSuggestionID int64
			svc.recordSelectionFn = func(_ context.Context, workspaceID, suggestionID int64, wasEdited bool, finalContent *string) error {
				Expect(workspaceID).To(Equal(int64(7)))
				Expect(wasEdited).To(BeTrue())
				Expect(finalContent).To(HaveValue(Equal("tweaked")))
				gotSuggestionID = suggestionID
				return nil
			}

			w := postJSON("/suggestions/200/select", map[string]any{
				"workspace_id":  7,
				"was_edited":    true,
				"final_content": "tweaked",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotSuggestionID).To(Equal(int64(200)))
		})

		It("returns 400 for a non-numeric id", func() {
			w := postJSON("/suggestions/abc/select", map[string]any{"workspace_id": 7})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown suggestion", func() {
			svc.recordSelectionFn = func(_ context.Context, _, _ int64, _ bool, _ *string) error {
				return store.ErrNotFound
			}

			w := postJSON("/suggestions/200/select", map[string]any{"workspace_id": 7})
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 409 when another suggestion is already selected", func() {
			svc.recordSelectionFn = func(_ context.Context, _, _ int64, _ bool, _ *string) error {
				return service.ErrSelectionConflict
			}

			w := postJSON("/suggestions/200/select", map[string]any{"workspace_id": 7})
			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("RecordSend", func() {
		It("returns the new performance id", func() {
			svc.recordSendFn = func(_ context.Context, params service.SendParams) (int64, error) {
				Expect(params.SentMessageID).To(Equal("msg-900"))
				return 500, nil
			}

			w := postJSON("/sends", map[string]any{
				"workspace_id":    7,
				"sent_message_id": "msg-900",
				"channel":         "email",
				"content":         "Sending pricing over.",
			})

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["performance_id"]).To(Equal("500"))
		})

		It("returns 400 when required fields are missing", func() {
			w := postJSON("/sends", map[string]any{"workspace_id": 7})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the service fails", func() {
			svc.recordSendFn = func(_ context.Context, _ service.SendParams) (int64, error) {
				return 0, errors.New("boom")
			}

			w := postJSON("/sends", map[string]any{
				"workspace_id":    7,
				"sent_message_id": "msg-900",
				"channel":         "email",
				"content":         "hello",
			})
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})

var _ = Describe("OutcomeHandler", func() {
	var (
		router   *gin.Engine
		producer *mockProducer
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		producer = &mockProducer{}
		h := handler.NewOutcomeHandler(producer, "X-Trace-Id")
		router.POST("/outcomes", h.Record)
	})

	postOutcome := func(body map[string]any, headers map[string]string) *httptest.ResponseRecorder {
		payload, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/outcomes", bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("enqueues the outcome and returns 202", func() {
		var enqueued queue.OutcomeEvent
		producer.enqueueFn = func(_ context.Context, event queue.OutcomeEvent) error {
			enqueued = event
			return nil
		}

		w := postOutcome(map[string]any{
			"performance_id": "500",
			"outcome":        "meeting_booked",
			"got_response":   true,
		}, map[string]string{"X-Trace-Id": "trace-abc"})

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(enqueued.PerformanceID).To(Equal(int64(500)))
		Expect(enqueued.Outcome).To(Equal("meeting_booked"))
		Expect(enqueued.TraceID).To(HaveValue(Equal("trace-abc")))

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["queued"]).To(BeTrue())
	})

	It("rejects an unknown outcome value before enqueueing", func() {
		called := false
		producer.enqueueFn = func(_ context.Context, _ queue.OutcomeEvent) error {
			called = true
			return nil
		}

		w := postOutcome(map[string]any{
			"performance_id": "500",
			"outcome":        "shrug",
		}, nil)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(called).To(BeFalse())
	})

	It("returns 500 when the stream is unreachable", func() {
		producer.enqueueFn = func(_ context.Context, _ queue.OutcomeEvent) error {
			return errors.New("redis down")
		}

		w := postOutcome(map[string]any{
			"performance_id": "500",
			"outcome":        "no_response",
		}, nil)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})

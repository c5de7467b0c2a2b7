package webserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stake-plus/civic-proposals/src/api/config"
	"github.com/stake-plus/civic-proposals/src/api/webserver"
	"github.com/stake-plus/civic-proposals/src/metrics"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/verifications"
)

const secret = "test-secret"

type mockProposalService struct {
	listFn    func(ctx context.Context, featureID int64, req proposals.ListRequest) (*proposals.Listing, error)
	newFormFn func(ctx context.Context, featureID, userID int64) (*proposals.Form, error)
	createFn  func(ctx context.Context, in proposals.CreateParams) (*proposals.Proposal, error)
	showFn    func(ctx context.Context, id int64, locale string) (*proposals.Detail, error)
	voteFn    func(ctx context.Context, proposalID, userID int64) (int, error)
	answerFn  func(ctx context.Context, proposalID int64, state proposals.AnswerState, j proposals.LocalizedText) (*proposals.Proposal, error)
}

func (m *mockProposalService) List(ctx context.Context, featureID int64, req proposals.ListRequest) (*proposals.Listing, error) {
	if m.listFn != nil {
		return m.listFn(ctx, featureID, req)
	}
	return &proposals.Listing{}, nil
}

func (m *mockProposalService) NewForm(ctx context.Context, featureID, userID int64) (*proposals.Form, error) {
	if m.newFormFn != nil {
		return m.newFormFn(ctx, featureID, userID)
	}
	return &proposals.Form{}, nil
}

func (m *mockProposalService) Create(ctx context.Context, in proposals.CreateParams) (*proposals.Proposal, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &proposals.Proposal{ID: 1}, nil
}

func (m *mockProposalService) Show(ctx context.Context, id int64, locale string) (*proposals.Detail, error) {
	if m.showFn != nil {
		return m.showFn(ctx, id, locale)
	}
	return &proposals.Detail{}, nil
}

func (m *mockProposalService) Vote(ctx context.Context, proposalID, userID int64) (int, error) {
	if m.voteFn != nil {
		return m.voteFn(ctx, proposalID, userID)
	}
	return 1, nil
}

func (m *mockProposalService) Answer(ctx context.Context, proposalID int64, state proposals.AnswerState, j proposals.LocalizedText) (*proposals.Proposal, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, proposalID, state, j)
	}
	return &proposals.Proposal{ID: proposalID}, nil
}

func token(sub any, admin bool) string {
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	if admin {
		claims["admin"] = true
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	Expect(err).NotTo(HaveOccurred())
	return signed
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
	return out
}

var _ = Describe("Router", func() {
	var (
		router  *gin.Engine
		svc     *mockProposalService
		m       *metrics.Metrics
		limiter *webserver.RateLimiter
	)

	do := func(method, path, bearer string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		svc = &mockProposalService{}
		m = metrics.New()
		limiter = webserver.NewRateLimiter(100, time.Minute)
		DeferCleanup(limiter.Close)

		registry := verifications.NewRegistry()
		Expect(registry.RegisterHandler("dummy_authorization_handler")).To(Succeed())
		Expect(registry.RegisterWorkflow("id_documents", "upload", "review")).To(Succeed())

		cfg := config.Config{JWTSecret: secret, AllowOrigins: []string{"http://localhost:3000"}}
		router = webserver.New(cfg, webserver.Deps{
			Proposals: svc,
			Registry:  registry,
			Metrics:   m,
			Limiter:   limiter,
		})
	})

	Describe("GET /v1/verifications", func() {
		It("serialises empty groups as arrays", func() {
			empty := webserver.New(config.Config{JWTSecret: secret}, webserver.Deps{
				Proposals: svc,
				Registry:  verifications.NewRegistry(),
			})
			rec := httptest.NewRecorder()
			empty.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/verifications", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"handlers":[]`))
			Expect(rec.Body.String()).To(ContainSubstring(`"workflows":[]`))
			Expect(rec.Body.String()).To(ContainSubstring(`"methods":[]`))
		})

		It("lists direct handlers and workflows separately", func() {
			rec := do(http.MethodGet, "/v1/verifications", "", nil)

			Expect(rec.Code).To(Equal(http.StatusOK))
			out := decode(rec)
			Expect(out["handlers"]).To(Equal([]any{"dummy_authorization_handler"}))
			workflows := out["workflows"].([]any)
			Expect(workflows).To(HaveLen(1))
			Expect(workflows[0].(map[string]any)["name"]).To(Equal("id_documents"))
			Expect(out["methods"]).To(HaveLen(2))
		})
	})

	Describe("GET /v1/features/:feature/proposals", func() {
		It("parses filters, ordering and pagination", func() {
			var got proposals.ListRequest
			var gotFeature int64
			svc.listFn = func(_ context.Context, featureID int64, req proposals.ListRequest) (*proposals.Listing, error) {
				gotFeature, got = featureID, req
				return &proposals.Listing{Order: proposals.OrderRandom, Seed: 42}, nil
			}

			rec := do(http.MethodGet,
				"/v1/features/7/proposals?filter[origin]=official&filter[scope_id]=1&filter[scope_id]=2&filter[category_id]=3&filter[state]=accepted&filter[search_text]=bench&order=random&page=2&per_page=5&seed=42",
				"", nil)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotFeature).To(Equal(int64(7)))
			Expect(got.Filter.Origin).To(Equal(proposals.OriginOfficial))
			Expect(got.Filter.ScopeIDs).To(Equal([]int64{1, 2}))
			Expect(*got.Filter.CategoryID).To(Equal(int64(3)))
			Expect(got.Filter.State).To(Equal(proposals.StateAccepted))
			Expect(got.Filter.SearchText).To(Equal("bench"))
			Expect(got.Order).To(Equal("random"))
			Expect(*got.Page).To(Equal(2))
			Expect(got.PerPage).To(Equal(5))
			Expect(*got.Seed).To(Equal(uint64(42)))
			Expect(got.RequestID).NotTo(BeEmpty())
			Expect(rec.Header().Get("X-Request-ID")).To(Equal(got.RequestID))
		})

		It("keeps a caller supplied request id", func() {
			var got proposals.ListRequest
			svc.listFn = func(_ context.Context, _ int64, req proposals.ListRequest) (*proposals.Listing, error) {
				got = req
				return &proposals.Listing{}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/features/7/proposals", nil)
			req.Header.Set("X-Request-ID", "abc-123")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(got.RequestID).To(Equal("abc-123"))
		})

		It("rejects a malformed page with 422", func() {
			rec := do(http.MethodGet, "/v1/features/7/proposals?page=two", "", nil)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(decode(rec)["field"]).To(Equal("page"))
		})

		It("maps an unknown order to 422", func() {
			svc.listFn = func(context.Context, int64, proposals.ListRequest) (*proposals.Listing, error) {
				return nil, &proposals.ValidationError{Field: "order", Message: `unknown order "loudest"`}
			}
			rec := do(http.MethodGet, "/v1/features/7/proposals?order=loudest", "", nil)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("maps an out of range page to 400", func() {
			svc.listFn = func(context.Context, int64, proposals.ListRequest) (*proposals.Listing, error) {
				return nil, &proposals.OutOfRangeError{Page: -1}
			}
			rec := do(http.MethodGet, "/v1/features/7/proposals?page=-1", "", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("passes an explicit page=0 through and answers 400", func() {
			var got proposals.ListRequest
			svc.listFn = func(_ context.Context, _ int64, req proposals.ListRequest) (*proposals.Listing, error) {
				got = req
				return proposals.BuildListing(nil, proposals.FeatureConfig{}, req)
			}
			rec := do(http.MethodGet, "/v1/features/7/proposals?page=0", "", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(got.Page).NotTo(BeNil())
			Expect(*got.Page).To(Equal(0))
		})

		It("leaves the page unset when absent", func() {
			var got proposals.ListRequest
			svc.listFn = func(_ context.Context, _ int64, req proposals.ListRequest) (*proposals.Listing, error) {
				got = req
				return &proposals.Listing{}, nil
			}
			rec := do(http.MethodGet, "/v1/features/7/proposals", "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(got.Page).To(BeNil())
		})

		It("maps an unknown feature to 404", func() {
			svc.listFn = func(context.Context, int64, proposals.ListRequest) (*proposals.Listing, error) {
				return nil, &proposals.NotFoundError{Resource: "feature", ID: "7"}
			}
			rec := do(http.MethodGet, "/v1/features/7/proposals", "", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /v1/features/:feature/proposals", func() {
		It("requires a bearer token", func() {
			rec := do(http.MethodPost, "/v1/features/7/proposals", "", map[string]any{"title": "t"})
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects tokens signed with another key", func() {
			bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "5"}).SignedString([]byte("other"))
			Expect(err).NotTo(HaveOccurred())
			rec := do(http.MethodPost, "/v1/features/7/proposals", bad, map[string]any{"title": "t"})
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("creates a proposal as the token subject", func() {
			var got proposals.CreateParams
			svc.createFn = func(_ context.Context, in proposals.CreateParams) (*proposals.Proposal, error) {
				got = in
				return &proposals.Proposal{ID: 99, FeatureID: in.FeatureID, Title: in.Title}, nil
			}

			rec := do(http.MethodPost, "/v1/features/7/proposals", token("5", false), map[string]any{
				"title":         "More benches",
				"body":          "Please",
				"user_group_id": 3,
				"scope_id":      4,
			})

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(got.FeatureID).To(Equal(int64(7)))
			Expect(got.UserID).To(Equal(int64(5)))
			Expect(*got.UserGroupID).To(Equal(int64(3)))
			Expect(*got.ScopeID).To(Equal(int64(4)))
			Expect(got.Official).To(BeFalse())
			Expect(decode(rec)["id"]).To(BeEquivalentTo(99))
		})

		It("accepts numeric subjects", func() {
			var got proposals.CreateParams
			svc.createFn = func(_ context.Context, in proposals.CreateParams) (*proposals.Proposal, error) {
				got = in
				return &proposals.Proposal{ID: 1}, nil
			}
			rec := do(http.MethodPost, "/v1/features/7/proposals", token(12, false), map[string]any{"title": "t", "body": "b"})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(got.UserID).To(Equal(int64(12)))
		})

		It("reports the missing authorization handler", func() {
			svc.createFn = func(context.Context, proposals.CreateParams) (*proposals.Proposal, error) {
				return nil, &proposals.AuthorizationError{Handler: "dummy_authorization_handler"}
			}
			rec := do(http.MethodPost, "/v1/features/7/proposals", token("5", false), map[string]any{"title": "t", "body": "b"})

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			out := decode(rec)
			Expect(out["err"]).To(Equal("authorization required"))
			Expect(out["handler"]).To(Equal("dummy_authorization_handler"))
		})

		It("reports blank fields with 422", func() {
			svc.createFn = func(context.Context, proposals.CreateParams) (*proposals.Proposal, error) {
				return nil, &proposals.ValidationError{Field: "title", Message: "can't be blank"}
			}
			rec := do(http.MethodPost, "/v1/features/7/proposals", token("5", false), map[string]any{"body": "b"})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(decode(rec)["field"]).To(Equal("title"))
		})

		It("maps disabled creation to 403", func() {
			svc.createFn = func(context.Context, proposals.CreateParams) (*proposals.Proposal, error) {
				return nil, proposals.ErrCreationDisabled
			}
			rec := do(http.MethodPost, "/v1/features/7/proposals", token("5", false), map[string]any{"title": "t", "body": "b"})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("only lets admins create official proposals", func() {
			called := false
			svc.createFn = func(_ context.Context, in proposals.CreateParams) (*proposals.Proposal, error) {
				called = true
				Expect(in.Official).To(BeTrue())
				return &proposals.Proposal{ID: 1, Author: proposals.OfficialAuthor()}, nil
			}

			rec := do(http.MethodPost, "/v1/features/7/proposals", token("5", false), map[string]any{"title": "t", "body": "b", "official": true})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(called).To(BeFalse())

			rec = do(http.MethodPost, "/v1/features/7/proposals", token("5", true), map[string]any{"title": "t", "body": "b", "official": true})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(called).To(BeTrue())
		})
	})

	Describe("GET /v1/features/:feature/proposals/new", func() {
		It("describes the form for the caller", func() {
			svc.newFormFn = func(_ context.Context, featureID, userID int64) (*proposals.Form, error) {
				Expect(featureID).To(Equal(int64(7)))
				Expect(userID).To(Equal(int64(5)))
				return &proposals.Form{CreationEnabled: true, AuthorizationRequired: true, Handler: "dummy_authorization_handler"}, nil
			}
			rec := do(http.MethodGet, "/v1/features/7/proposals/new", token("5", false), nil)

			Expect(rec.Code).To(Equal(http.StatusOK))
			out := decode(rec)
			Expect(out["authorization_required"]).To(BeTrue())
			Expect(out["authorization_handler"]).To(Equal("dummy_authorization_handler"))
		})
	})

	Describe("GET /v1/proposals/:id", func() {
		It("uses the Accept-Language primary tag", func() {
			var gotLocale string
			svc.showFn = func(_ context.Context, id int64, locale string) (*proposals.Detail, error) {
				gotLocale = locale
				return &proposals.Detail{Proposal: proposals.Proposal{ID: id}, AuthorName: proposals.DeletedUserName}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/proposals/3", nil)
			req.Header.Set("Accept-Language", "ca-ES,ca;q=0.9,en;q=0.8")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotLocale).To(Equal("ca"))
			Expect(decode(rec)["author_name"]).To(Equal("Deleted user"))
		})

		It("rejects a non numeric id", func() {
			rec := do(http.MethodGet, "/v1/proposals/abc", "", nil)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("maps a missing proposal to 404", func() {
			svc.showFn = func(context.Context, int64, string) (*proposals.Detail, error) {
				return nil, &proposals.NotFoundError{Resource: "proposal", ID: "3"}
			}
			rec := do(http.MethodGet, "/v1/proposals/3", "", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(decode(rec)["err"]).To(Equal("proposal 3 not found"))
		})
	})

	Describe("POST /v1/proposals/:id/votes", func() {
		It("returns the new count", func() {
			svc.voteFn = func(_ context.Context, proposalID, userID int64) (int, error) {
				Expect(proposalID).To(Equal(int64(3)))
				Expect(userID).To(Equal(int64(5)))
				return 8, nil
			}
			rec := do(http.MethodPost, "/v1/proposals/3/votes", token("5", false), nil)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(decode(rec)["vote_count"]).To(BeEquivalentTo(8))
		})

		DescribeTable("maps vote refusals to 409",
			func(err error) {
				svc.voteFn = func(context.Context, int64, int64) (int, error) { return 0, err }
				rec := do(http.MethodPost, "/v1/proposals/3/votes", token("5", false), nil)
				Expect(rec.Code).To(Equal(http.StatusConflict))
			},
			Entry("voting closed", proposals.ErrVotingClosed),
			Entry("already voted", proposals.ErrAlreadyVoted),
		)

		It("rate limits a single user", func() {
			limited := webserver.NewRateLimiter(1, time.Minute)
			DeferCleanup(limited.Close)
			router = webserver.New(config.Config{JWTSecret: secret}, webserver.Deps{
				Proposals: svc,
				Registry:  verifications.NewRegistry(),
				Limiter:   limited,
			})

			Expect(do(http.MethodPost, "/v1/proposals/3/votes", token("5", false), nil).Code).To(Equal(http.StatusCreated))
			Expect(do(http.MethodPost, "/v1/proposals/3/votes", token("5", false), nil).Code).To(Equal(http.StatusTooManyRequests))
			Expect(do(http.MethodPost, "/v1/proposals/3/votes", token("6", false), nil).Code).To(Equal(http.StatusCreated))
		})
	})

	Describe("PUT /v1/admin/proposals/:id/answer", func() {
		It("requires the admin claim", func() {
			rec := do(http.MethodPut, "/v1/admin/proposals/3/answer", token("5", false), map[string]any{"state": "accepted"})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("rejects states other than accepted or rejected", func() {
			rec := do(http.MethodPut, "/v1/admin/proposals/3/answer", token("1", true), map[string]any{"state": "pending"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("answers the proposal", func() {
			var gotState proposals.AnswerState
			var gotJustification proposals.LocalizedText
			svc.answerFn = func(_ context.Context, id int64, state proposals.AnswerState, j proposals.LocalizedText) (*proposals.Proposal, error) {
				gotState, gotJustification = state, j
				return &proposals.Proposal{ID: id, Answer: &proposals.Answer{State: state, Justification: j}}, nil
			}

			rec := do(http.MethodPut, "/v1/admin/proposals/3/answer", token("1", true), map[string]any{
				"state":         "rejected",
				"justification": map[string]string{"en": "Out of budget"},
			})

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotState).To(Equal(proposals.StateRejected))
			Expect(gotJustification.Translated("en")).To(Equal("Out of budget"))
		})
	})

	Describe("GET /metrics", func() {
		It("exposes domain counters", func() {
			Expect(do(http.MethodPost, "/v1/proposals/3/votes", token("5", false), nil).Code).To(Equal(http.StatusCreated))

			rec := do(http.MethodGet, "/metrics", "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(strings.Contains(rec.Body.String(), "proposals_votes_total 1")).To(BeTrue())
		})
	})
})

package webserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/civic-proposals/src/proposals"
)

type Proposals struct {
	svc      ProposalService
	counters Counters
}

func NewProposals(svc ProposalService, counters Counters) Proposals {
	return Proposals{svc: svc, counters: counters}
}

func (p Proposals) List(c *gin.Context) {
	featureID, err := proposals.ParseID("feature", c.Param("feature"))
	if err != nil {
		respondError(c, err)
		return
	}
	req, err := parseListRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	req.RequestID = c.GetString(ctxRequestID)

	listing, err := p.svc.List(c.Request.Context(), featureID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (p Proposals) New(c *gin.Context) {
	featureID, err := proposals.ParseID("feature", c.Param("feature"))
	if err != nil {
		respondError(c, err)
		return
	}
	form, err := p.svc.NewForm(c.Request.Context(), featureID, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (p Proposals) Create(c *gin.Context) {
	featureID, err := proposals.ParseID("feature", c.Param("feature"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Title       string `json:"title"`
		Body        string `json:"body"`
		CategoryID  *int64 `json:"category_id"`
		ScopeID     *int64 `json:"scope_id"`
		UserGroupID *int64 `json:"user_group_id"`
		Address     string `json:"address"`
		Official    bool   `json:"official"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.Official && !c.GetBool(ctxAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"err": "admin access required"})
		return
	}

	created, err := p.svc.Create(c.Request.Context(), proposals.CreateParams{
		FeatureID:   featureID,
		UserID:      userID(c),
		UserGroupID: req.UserGroupID,
		Official:    req.Official,
		Title:       req.Title,
		Body:        req.Body,
		CategoryID:  req.CategoryID,
		ScopeID:     req.ScopeID,
		Address:     req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	p.counters.ProposalCreated()
	c.JSON(http.StatusCreated, created)
}

func (p Proposals) Show(c *gin.Context) {
	id, err := proposals.ParseID("id", c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	detail, err := p.svc.Show(c.Request.Context(), id, locale(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func parseListRequest(c *gin.Context) (proposals.ListRequest, error) {
	req := proposals.ListRequest{
		Order: c.Query("order"),
		Filter: proposals.Filter{
			Origin:     proposals.Origin(c.Query("filter[origin]")),
			State:      proposals.AnswerState(c.Query("filter[state]")),
			SearchText: c.Query("filter[search_text]"),
		},
	}

	for _, raw := range c.QueryArray("filter[scope_id]") {
		id, err := proposals.ParseID("filter[scope_id]", raw)
		if err != nil {
			return req, err
		}
		req.Filter.ScopeIDs = append(req.Filter.ScopeIDs, id)
	}
	if raw := c.Query("filter[category_id]"); raw != "" {
		id, err := proposals.ParseID("filter[category_id]", raw)
		if err != nil {
			return req, err
		}
		req.Filter.CategoryID = &id
	}

	if raw, ok := c.GetQuery("page"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, &proposals.ValidationError{Field: "page", Message: "must be an integer"}
		}
		req.Page = &n
	}
	var err error
	if req.PerPage, err = queryInt(c, "per_page"); err != nil {
		return req, err
	}
	if raw := c.Query("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return req, &proposals.ValidationError{Field: "seed", Message: "must be an unsigned integer"}
		}
		req.Seed = &seed
	}
	return req, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &proposals.ValidationError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

// locale picks ?locale= first, then the primary Accept-Language tag.
func locale(c *gin.Context) string {
	if l := c.Query("locale"); l != "" {
		return l
	}
	al := c.GetHeader("Accept-Language")
	if al == "" {
		return "en"
	}
	tag := strings.TrimSpace(strings.SplitN(strings.SplitN(al, ",", 2)[0], ";", 2)[0])
	if i := strings.IndexByte(tag, '-'); i > 0 {
		tag = tag[:i]
	}
	if tag == "" || tag == "*" {
		return "en"
	}
	return strings.ToLower(tag)
}

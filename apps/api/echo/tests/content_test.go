package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	echoapi "github.com/shulehub/shule/apps/api/echo"
	"github.com/shulehub/shule/core/content"
	"github.com/shulehub/shule/core/identity"
	testutil "github.com/shulehub/shule/tests"
)

func Test_contentApi_query(t *testing.T) {
	db.Reset()

	path := func(status, search, owner string) string {
		v := make(url.Values)
		if status != "" {
			v.Add("status", status)
		}
		if search != "" {
			v.Add("search", search)
		}
		if owner != "" {
			v.Add("owner", owner)
		}
		if len(v) == 0 {
			return "/v1/content"
		}
		return "/v1/content?" + v.Encode()
	}

	seller := testutil.Student("usr-seller", identity.TierStandard)
	buyer := testutil.Student("usr-buyer", identity.TierFree)
	admin := testutil.Admin("usr-admin")

	now := time.Now().UTC()
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)

	// listed newest first
	approved := testutil.CreateContent(t, contentRepo, seller.ID, "Linear Algebra", content.KindBook, 2500, content.StatusApproved, now)
	rejected := testutil.CreateContent(t, contentRepo, seller.ID, "Old Notes", content.KindSummary, 0, content.StatusRejected, t1)
	pending := testutil.CreateContent(t, contentRepo, seller.ID, "New Notes", content.KindSummary, 500, content.StatusPending, t2)
	foreignPending := testutil.CreateContent(t, contentRepo, buyer.ID, "Buyer Draft", content.KindLecture, 0, content.StatusPending, t3)

	adminToken := getToken(t, admin)
	sellerToken := getToken(t, seller)

	list := func(items ...content.Content) []byte {
		if items == nil {
			items = []content.Content{}
		}
		return marshallObj(t, echoapi.ContentListResponse{Items: items, Total: len(items), Page: 1, PageSize: 20})
	}

	tests := []httpTest{
		{name: "anonymous sees approved only", path: path("", "", ""), wantCode: http.StatusOK, wantData: list(approved)},
		{
			name: "owner sees own plus approved", path: path("", "", ""), token: sellerToken,
			wantCode: http.StatusOK, wantData: list(pending, rejected, approved),
		},
		{
			name: "admin sees all", path: path("", "", ""), token: adminToken,
			wantCode: http.StatusOK, wantData: list(foreignPending, pending, rejected, approved),
		},
		{
			name: "status filter", path: path("pending", "", ""), token: adminToken,
			wantCode: http.StatusOK, wantData: list(foreignPending, pending),
		},
		{
			name: "status filter hides foreign pending", path: path("pending", "", ""), token: sellerToken,
			wantCode: http.StatusOK, wantData: list(pending),
		},
		{
			name: "search", path: path("", "algebra", ""), token: adminToken,
			wantCode: http.StatusOK, wantData: list(approved),
		},
		{
			name: "owner filter", path: path("", "", buyer.ID), token: adminToken,
			wantCode: http.StatusOK, wantData: list(foreignPending),
		},
		{name: "no match", path: path("rejected", "algebra", ""), token: adminToken, wantCode: http.StatusOK, wantData: list()},
		{name: "malformed page is rejected", path: "/v1/content?page=abc", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_contentApi_retrieve(t *testing.T) {
	db.Reset()

	seller := testutil.Student("usr-seller", identity.TierStandard)
	buyer := testutil.Student("usr-buyer", identity.TierFree)

	approved := testutil.CreateContent(t, contentRepo, seller.ID, "Linear Algebra", content.KindBook, 2500, content.StatusApproved)
	pending := testutil.CreateContent(t, contentRepo, seller.ID, "New Notes", content.KindSummary, 500, content.StatusPending)

	notFound := marshallObj(t, httpErr{Error: "content not found"})

	tests := []httpTest{
		{name: "anonymous gets approved", path: "/v1/content/" + approved.ID, wantCode: http.StatusOK, wantData: marshallObj(t, approved)},
		{name: "owner gets own pending", path: "/v1/content/" + pending.ID, token: getToken(t, seller), wantCode: http.StatusOK, wantData: marshallObj(t, pending)},
		{name: "admin gets pending", path: "/v1/content/" + pending.ID, token: getToken(t, testutil.Admin("usr-admin")), wantCode: http.StatusOK, wantData: marshallObj(t, pending)},
		{name: "pending hidden from others", path: "/v1/content/" + pending.ID, token: getToken(t, buyer), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "pending hidden from anonymous", path: "/v1/content/" + pending.ID, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "missing row", path: "/v1/content/nope", token: getToken(t, buyer), wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_contentApi_create(t *testing.T) {
	db.Reset()

	seller := testutil.Student("usr-seller", identity.TierStandard)
	body := marshallObj(t, content.NewContent{Kind: content.KindBook, Title: "Calculus I", PriceCents: 1500})

	tests := []httpTest{
		{name: "auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "payload required", body: []byte(`{}`), token: getToken(t, seller), wantCode: http.StatusBadRequest},
		{name: "kind checked", body: marshallObj(t, content.NewContent{Kind: "poem", Title: "T"}), token: getToken(t, seller), wantCode: http.StatusBadRequest},
		{name: "blank title checked", body: []byte(`{"kind":"book","title":"   "}`), token: getToken(t, seller), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/content", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("submission starts pending", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/content", getToken(t, seller), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var c content.Content
		if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if c.ID == "" || c.OwnerID != seller.ID || c.Status != content.StatusPending {
			t.Errorf("unexpected submission: %+v", c)
		}
	})
}

func Test_contentApi_moderate(t *testing.T) {
	db.Reset()

	seller := testutil.Student("usr-seller", identity.TierStandard)
	admin := testutil.Admin("usr-admin")
	adminToken := getToken(t, admin)

	pending := testutil.CreateContent(t, contentRepo, seller.ID, "New Notes", content.KindSummary, 500, content.StatusPending)
	contested := testutil.CreateContent(t, contentRepo, seller.ID, "Contested", content.KindSummary, 0, content.StatusPending)

	approve := marshallObj(t, echoapi.ModerationRequest{Action: "approve"})
	reject := marshallObj(t, echoapi.ModerationRequest{Action: "reject", Reason: "plagiarized"})

	tests := []httpTest{
		{name: "auth required", path: pending.ID, body: approve, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "admin required", path: pending.ID, body: approve, token: getToken(t, seller), wantCode: http.StatusForbidden, wantData: marshallObj(t, errPermDenied)},
		{name: "action checked", path: pending.ID, body: []byte(`{"action":"shrug"}`), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "reject needs a reason", path: pending.ID, body: marshallObj(t, echoapi.ModerationRequest{Action: "reject"}), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "missing row", path: "nope", body: approve, token: adminToken, wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "content not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPatch, "/v1/content/"+tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/content/"+pending.ID, adminToken, approve)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var c content.Content
		if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if c.Status != content.StatusApproved || c.ApprovedBy != admin.ID || c.ApprovedAt == nil {
			t.Errorf("unexpected approval result: %+v", c)
		}
	})

	t.Run("approved is terminal", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "content is no longer pending"}),
		}
		req, rec := newAuthRequest(http.MethodPatch, "/v1/content/"+pending.ID, adminToken, reject)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("reject", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/content/"+contested.ID, adminToken, reject)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var c content.Content
		if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if c.Status != content.StatusRejected || c.RejectionReason != "plagiarized" {
			t.Errorf("unexpected rejection result: %+v", c)
		}
		if c.ApprovedBy != "" || c.ApprovedAt != nil {
			t.Error("rejection carries approval fields")
		}
	})
}

func Test_contentApi_destroy(t *testing.T) {
	db.Reset()

	seller := testutil.Student("usr-seller", identity.TierStandard)
	buyer := testutil.Student("usr-buyer", identity.TierFree)

	doomed := testutil.CreateContent(t, contentRepo, seller.ID, "Doomed", content.KindBook, 0, content.StatusPending)

	tests := []httpTest{
		{name: "auth required", path: doomed.ID, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "owner only", path: doomed.ID, token: getToken(t, buyer), wantCode: http.StatusForbidden, wantData: marshallObj(t, errPermDenied)},
		{name: "owner deletes", path: doomed.ID, token: getToken(t, seller), wantCode: http.StatusNoContent},
		{name: "gone for good", path: doomed.ID, token: getToken(t, seller), wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "content not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, "/v1/content/"+tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

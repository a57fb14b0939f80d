package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"publish-service/app/domain"
	"publish-service/app/port"
	"publish-service/app/utils/metrics"
)

// PublishDeps carries the collaborators of the publish pipeline.
type PublishDeps struct {
	Credentials port.CredentialStore
	Wiki        port.WikiClient
	Wikidata    port.WikidataLinker
	Revisions   port.RevisionResolver
	Transformer port.TextTransformer
	Reports     port.ReportStore
	Pages       port.PageStore
	Categories  port.CategoryStore
	Words       port.WordCounter
	Audit       port.AuditLog
	Formatter   *domain.Formatter
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// FallbackUser is the identity used to retry Wikidata linking when the
	// acting user's token fetch fails.
	FallbackUser string
}

// PublishUsecase drives a translated article from inbound request to saved
// wiki edit, Wikidata sitelink, bookkeeping row, and audit trail.
type PublishUsecase struct {
	deps PublishDeps

	wikiURLTemplate string
	now             func() time.Time
}

func NewPublishUsecase(deps PublishDeps) *PublishUsecase {
	return &PublishUsecase{
		deps:            deps,
		wikiURLTemplate: "https://%s.wikipedia.org/w/api.php",
		now:             time.Now,
	}
}

func (u *PublishUsecase) wikiURL(lang string) string {
	return fmt.Sprintf(u.wikiURLTemplate, lang)
}

// Publish runs the whole pipeline. Wiki-side failures never surface as Go
// errors: every outcome lands in op.Result and op.ResultToCX, and every
// outcome produces exactly one audit entry and one report row.
func (u *PublishUsecase) Publish(ctx context.Context, req *domain.PublishRequest) (*domain.PublishOperation, error) {
	user := u.deps.Formatter.FormatUser(req.User)
	title := u.deps.Formatter.FormatTitle(req.Title)
	op := domain.NewPublishOperation(req, user, title)
	op.ID = uuid.NewString()

	creds, err := u.deps.Credentials.Decrypted(ctx, user)
	if err != nil || !creds.Complete() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			u.deps.Logger.Error("credential lookup failed", "user", user, "error", err)
		}
		u.noAccess(ctx, op)
		return op, nil
	}

	requestRevID := req.RevID
	if requestRevID == "" {
		requestRevID = req.Revision
	}
	revid, empty := u.deps.Revisions.Resolve(ctx, req.SourceTitle, requestRevID)
	op.RevID = revid
	if empty {
		op.EmptyRevID = "no revid found for: " + req.SourceTitle
	}

	hashtag := u.deps.Formatter.DetermineHashtag(title, user)
	op.Summary = domain.MakeSummary(revid, req.SourceTitle, req.Target, hashtag)

	text := u.transformText(ctx, op, req.Text)

	editResp := u.edit(ctx, creds, op, req, text)
	op.Edit = editResp

	edit, _ := editResp["edit"].(map[string]any)
	switch {
	case edit != nil && edit["result"] == "Success":
		u.succeed(ctx, creds, op, req, editResp)
	case edit != nil && edit["captcha"] != nil:
		op.Result = domain.ResultCaptcha
		op.ResultToCX = editResp
	default:
		op.Result = domain.ClassifyEditError(editResp)
		op.ResultToCX = editResp
		if op.Result == "mwoauth-invalid-authorization" {
			// The wiki no longer honors this grant; drop it so the next
			// request reports noaccess instead of failing the same way.
			if err := u.deps.Credentials.DeleteByUsername(ctx, user); err != nil {
				u.deps.Logger.Error("credential delete failed", "user", user, "error", err)
			}
		}
	}

	u.finish(ctx, op)
	return op, nil
}

// noAccess terminates the pipeline before any wiki call: no stored
// credentials means a 403 with a synthetic edit failure.
func (u *PublishUsecase) noAccess(ctx context.Context, op *domain.PublishOperation) {
	op.Result = domain.ResultNoAccess
	op.Edit = map[string]any{
		"result": "Failure",
		"error":  map[string]any{"code": "noaccess", "info": "noaccess"},
	}
	op.ResultToCX = map[string]any{
		"error":    map[string]any{"code": "noaccess", "info": "noaccess"},
		"edit":     op.Edit,
		"username": op.User,
	}
	u.finish(ctx, op)
}

func (u *PublishUsecase) transformText(ctx context.Context, op *domain.PublishOperation, text string) string {
	if u.deps.Transformer == nil {
		return text
	}
	fixed, changed := u.deps.Transformer.FixRefs(ctx, op.Title, text)
	if !changed || strings.TrimSpace(fixed) == "" {
		op.FixRefs = "no"
		return text
	}
	op.FixRefs = "yes"
	return fixed
}

// edit issues the signed save. Transport failures come back as a structured
// error payload so classification and reporting stay uniform.
func (u *PublishUsecase) edit(ctx context.Context, creds domain.Credentials, op *domain.PublishOperation, req *domain.PublishRequest, text string) map[string]any {
	params := map[string]string{
		"title":   op.Title,
		"text":    text,
		"summary": op.Summary,
	}
	if req.CaptchaID != "" {
		params["captchaid"] = req.CaptchaID
		params["captchaword"] = req.CaptchaWord
	}

	response, err := u.deps.Wiki.Edit(ctx, u.wikiURL(op.Lang), creds, params)
	if err != nil {
		u.deps.Logger.Warn("edit call failed", "title", op.Title, "lang", op.Lang, "error", err)
		return map[string]any{
			"error": map[string]any{"code": "edit_call_failed", "info": err.Error()},
		}
	}
	return response
}

// succeed handles a saved edit: Wikidata sitelink with fallback retry,
// page-target bookkeeping, and the enriched response for the caller.
func (u *PublishUsecase) succeed(ctx context.Context, creds domain.Credentials, op *domain.PublishOperation, req *domain.PublishRequest, editResp map[string]any) {
	op.Result = domain.ResultSuccess

	wdResult := u.linkWithFallback(ctx, creds, op, req)

	sqlResult := u.recordPageTarget(ctx, op, req, wdResult)

	response := make(map[string]any, len(editResp)+2)
	for key, value := range editResp {
		response[key] = value
	}
	response["LinkToWikidata"] = wdResult
	response["sql_result"] = sqlResult
	op.ResultToCX = response
}

// linkWithFallback drives the sitelink update. A token-fetch failure for a
// non-fallback user is retried exactly once with the fallback identity's
// credentials; the retried result carries both identities for the audit
// trail. A link failure never fails the publish.
func (u *PublishUsecase) linkWithFallback(ctx context.Context, creds domain.Credentials, op *domain.PublishOperation, req *domain.PublishRequest) map[string]any {
	wdResult := u.deps.Wikidata.LinkToWikidata(ctx, creds, req.SourceTitle, op.Title, op.Lang)

	fallback := u.deps.FallbackUser
	if domain.ContainsToken(wdResult, "get_csrftoken") && op.User != fallback && fallback != "" {
		fallbackCreds, err := u.deps.Credentials.Decrypted(ctx, fallback)
		if err != nil {
			u.deps.Logger.Warn("fallback credentials unavailable", "fallback", fallback, "error", err)
		} else if fallbackCreds.Complete() {
			retried := u.deps.Wikidata.LinkToWikidata(ctx, fallbackCreds, req.SourceTitle, op.Title, op.Lang)
			if retried["result"] == domain.ResultSuccess {
				retried["fallback_user"] = fallback
				retried["original_user"] = op.User
			}
			wdResult = retried
		}
	}

	if wdResult["result"] != domain.ResultSuccess {
		label := domain.ClassifyWikidataError(wdResult)
		u.deps.Logger.Warn("wikidata link failed",
			"title", op.Title,
			"lang", op.Lang,
			"classified", label)
		if err := u.deps.Reports.Insert(ctx, u.now(), op.Title, op.User, op.Lang, op.SourceTitle, label, wdResult); err != nil {
			u.deps.Logger.Error("wikidata report insert failed", "error", err)
		} else {
			u.deps.Metrics.ReportInserted()
		}
		if err := u.deps.Audit.Append(label, map[string]any{
			"id":          op.ID,
			"title":       op.Title,
			"user":        op.User,
			"lang":        op.Lang,
			"sourcetitle": op.SourceTitle,
			"wikidata":    wdResult,
		}); err != nil {
			u.deps.Logger.Error("wikidata audit append failed", "error", err)
		}
	}
	return wdResult
}

// recordPageTarget upserts the bookkeeping row. Best effort: a store failure
// is logged and reported in the response, never raised.
func (u *PublishUsecase) recordPageTarget(ctx context.Context, op *domain.PublishOperation, req *domain.PublishRequest, wdResult map[string]any) any {
	category, err := u.deps.Categories.CategoryForCampaign(ctx, req.Campaign)
	if err != nil {
		u.deps.Logger.Warn("category lookup failed", "campaign", req.Campaign, "error", err)
	}

	page := &domain.PageTarget{
		Title:         req.SourceTitle,
		Word:          u.deps.Words.Count(req.SourceTitle),
		TranslateType: "lead",
		Category:      category,
		Lang:          op.Lang,
		User:          op.User,
		Target:        op.Title,
		MdwikiRevID:   op.RevID,
	}

	result, err := u.deps.Pages.InsertPageTarget(ctx, page, wdResult)
	if err != nil {
		u.deps.Logger.Error("page target upsert failed",
			"title", page.Title,
			"lang", page.Lang,
			"user", page.User,
			"error", err)
		return map[string]any{"error": err.Error()}
	}
	return result
}

// finish commits the audit trail for any branch: one counter bump, one
// JSON-lines entry, one report row.
func (u *PublishUsecase) finish(ctx context.Context, op *domain.PublishOperation) {
	u.deps.Metrics.PublishResult(op.Result)

	extra := map[string]any{
		"id":          op.ID,
		"title":       op.Title,
		"summary":     op.Summary,
		"lang":        op.Lang,
		"user":        op.User,
		"campaign":    op.Campaign,
		"result":      op.Result,
		"edit":        op.Edit,
		"sourcetitle": op.SourceTitle,
	}
	if op.RevID != "" {
		extra["revid"] = op.RevID
	}
	if op.EmptyRevID != "" {
		extra["empty_revid"] = op.EmptyRevID
	}
	if op.FixRefs != "" {
		extra["fix_refs"] = op.FixRefs
	}
	if err := u.deps.Audit.Append(op.Result, extra); err != nil {
		u.deps.Logger.Error("audit append failed", "result", op.Result, "error", err)
	}

	if err := u.deps.Reports.Insert(ctx, u.now(), op.Title, op.User, op.Lang, op.SourceTitle, op.Result, op); err != nil {
		u.deps.Logger.Error("report insert failed", "result", op.Result, "error", err)
		return
	}
	u.deps.Metrics.ReportInserted()
}

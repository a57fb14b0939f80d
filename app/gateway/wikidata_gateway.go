package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"publish-service/app/domain"
	"publish-service/app/port"
)

// WikidataGateway connects published pages to their Wikidata items with
// wbsetsitelink. Known titles are addressed by item id from the qids table;
// unknown ones fall back to entity lookup by the English Wikipedia sitelink.
type WikidataGateway struct {
	wiki   port.WikiClient
	qids   port.QidStore
	apiURL string
	logger *slog.Logger
}

func NewWikidataGateway(wiki port.WikiClient, qids port.QidStore, apiURL string, logger *slog.Logger) *WikidataGateway {
	return &WikidataGateway{wiki: wiki, qids: qids, apiURL: apiURL, logger: logger}
}

// LinkToWikidata points the lang-wiki sitelink of sourceTitle's item at the
// published page. The returned map is the raw API response with the resolved
// qid attached, except that a successful update collapses to
// {"result": "success", "qid": ...} for reports.
func (g *WikidataGateway) LinkToWikidata(ctx context.Context, creds domain.Credentials, sourceTitle, targetTitle, lang string) map[string]any {
	params := map[string]string{
		"action":    "wbsetsitelink",
		"linksite":  siteID(lang),
		"linktitle": targetTitle,
	}

	qid, err := g.qids.GetQidByTitle(ctx, sourceTitle)
	switch {
	case err == nil:
		params["id"] = qid
	case errors.Is(err, domain.ErrNotFound):
		// Address the entity through its enwiki sitelink instead.
		params["site"] = "enwiki"
		params["title"] = sourceTitle
	default:
		g.logger.Error("qid lookup failed", "title", sourceTitle, "error", err)
		return map[string]any{"error": map[string]any{"code": "qid_lookup_failed", "info": err.Error()}}
	}

	if !creds.Complete() {
		g.logger.Warn("wikidata link skipped, no credentials", "title", sourceTitle, "lang", lang)
		return map[string]any{
			"error": map[string]any{"code": "no_credentials", "info": "missing oauth credentials"},
			"qid":   qid,
		}
	}

	response, err := g.wiki.Post(ctx, g.apiURL, creds, params)
	if err != nil {
		g.logger.Warn("wbsetsitelink call failed", "title", sourceTitle, "lang", lang, "error", err)
		return map[string]any{
			"error": map[string]any{"code": "wbsetsitelink_failed", "info": err.Error()},
			"qid":   qid,
		}
	}

	if success, ok := response["success"].(float64); ok && success == 1 {
		result := map[string]any{"result": domain.ResultSuccess}
		if entity, ok := response["entity"].(map[string]any); ok {
			if id, ok := entity["id"].(string); ok {
				result["qid"] = id
				if qid == "" {
					// Remember the resolved id for next time.
					if err := g.qids.Add(ctx, sourceTitle, id); err != nil {
						g.logger.Warn("qid cache write failed", "title", sourceTitle, "error", err)
					}
				}
			}
		}
		return result
	}
	// Failure responses keep the item id for the report rows.
	response["qid"] = qid
	return response
}

// siteID maps a language code to its Wikidata site id.
func siteID(lang string) string {
	return strings.ReplaceAll(lang, "-", "_") + "wiki"
}

package sync

import (
	"context"

	"go.uber.org/zap"
)

// TitleIdentity ties a detail page to the ids extracted from it. Either id
// may be empty when the page did not carry the marker.
type TitleIdentity struct {
	DetailURL string
	NativeID  string
	IMDBID    string
}

// ResolvedTitle is a TitleIdentity whose IMDb id mapped to a metadata API
// movie id.
type ResolvedTitle struct {
	TitleIdentity
	TMDBID int
}

type resolution struct {
	resolved   *ResolvedTitle
	unresolved *TitleIdentity
	err        error
}

// resolveTitles fans out over the detail pages concurrently and splits them
// into titles the metadata API recognizes and titles it does not. A 403 from
// either source aborts the whole resolution; any other per-candidate failure
// demotes that candidate to unresolved with whatever ids were extracted.
func (p *Pipeline) resolveTitles(ctx context.Context, pageURLs []string) ([]ResolvedTitle, []TitleIdentity, error) {
	results := make(chan resolution, len(pageURLs))
	for _, pageURL := range pageURLs {
		go func(pageURL string) {
			results <- p.resolveTitle(ctx, pageURL)
		}(pageURL)
	}

	var (
		resolved   []ResolvedTitle
		unresolved []TitleIdentity
	)
	for range pageURLs {
		res := <-results
		switch {
		case res.err != nil:
			return nil, nil, res.err
		case res.resolved != nil:
			resolved = append(resolved, *res.resolved)
		case res.unresolved != nil:
			unresolved = append(unresolved, *res.unresolved)
		}
	}
	return resolved, unresolved, nil
}

func (p *Pipeline) resolveTitle(ctx context.Context, pageURL string) resolution {
	identity := TitleIdentity{DetailURL: pageURL}

	nativeID, imdbID, err := p.lister.TitleIDs(ctx, pageURL)
	if err != nil {
		if IsBlocked(err) {
			return resolution{err: err}
		}
		p.logger.Warn("detail page fetch failed, demoting to scrape path",
			zap.String("url", pageURL), zap.Error(err))
		return resolution{unresolved: &identity}
	}
	identity.NativeID = nativeID
	identity.IMDBID = imdbID

	if imdbID == "" {
		return resolution{unresolved: &identity}
	}

	tmdbID, found, err := p.api.FindByIMDB(ctx, imdbID)
	if err != nil {
		if IsBlocked(err) {
			return resolution{err: err}
		}
		p.logger.Warn("metadata lookup failed, demoting to scrape path",
			zap.String("imdb_id", imdbID), zap.Error(err))
		return resolution{unresolved: &identity}
	}
	if !found {
		return resolution{unresolved: &identity}
	}

	return resolution{resolved: &ResolvedTitle{TitleIdentity: identity, TMDBID: tmdbID}}
}

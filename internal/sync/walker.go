package sync

import (
	"context"
	"time"

	"github.com/ldesmet/cinesync/internal/catalog"
)

// midnightUTC truncates t to the start of its UTC calendar day.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// crawlShowtimes walks forward day by day from today (UTC) collecting the
// screening schedule of one title. The horizon is open-ended: the walk stops
// only after gapDays consecutive days came back empty, so mid-week dark days
// never cut a schedule short. Returned shows are in increasing date order.
func (p *Pipeline) crawlShowtimes(ctx context.Context, nativeID string) ([]catalog.Show, error) {
	var shows []catalog.Show
	gap := 0
	for day := midnightUTC(p.clock.Now()); ; day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cinemas, err := p.lister.Showtimes(ctx, nativeID, day)
		if err != nil {
			return nil, err
		}
		if len(cinemas) == 0 {
			gap++
			if gap >= p.cfg.GapDays {
				return shows, nil
			}
		} else {
			gap = 0
			shows = append(shows, catalog.Show{Date: day, Cinemas: cinemas})
		}

		// Pace only between requests; the terminal day pays no delay.
		p.sleeper.Sleep(ctx)
	}
}

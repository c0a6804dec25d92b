package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ldesmet/cinesync/internal/catalog"
	"github.com/ldesmet/cinesync/internal/metrics"
)

// showDateTimeLayout is the localized "dd-mm-yyyy HH:MM" format the
// showtimes endpoint uses; values are wall-clock local times persisted as
// UTC instants.
const showDateTimeLayout = "02-01-2006 15:04"

type showtimesResponse struct {
	Data []struct {
		Data []cinemaBlock `json:"data"`
	} `json:"data"`
}

type cinemaBlock struct {
	YellowID   int    `json:"YellowID"`
	YellowName string `json:"YellowName"`
	Data       []struct {
		ShowDateTime string `json:"ShowDateTime"`
		MVersion     string `json:"mVersion"`
		MVersionLong string `json:"mVersionLong"`
	} `json:"data"`
}

// Showtimes queries the showtimes-by-date endpoint for one title and day.
// An empty slice with a nil error means "nothing plays that day"; both the
// status and the decode errors are left to the caller's drop-or-abort
// policy.
func (c *Client) Showtimes(ctx context.Context, nativeID string, date time.Time) ([]catalog.CinemaShowtimes, error) {
	endpoint := fmt.Sprintf(
		"%s/modules/ajax_showtimes.cfm?Lang=%s&act=movieShowtimes&moviesId=%s&v3&regionId=%d&selDate=%s",
		c.cfg.BaseURL, c.cfg.Language, nativeID, c.cfg.RegionID, date.Format("2006-1-2"),
	)

	resp, err := c.fetcher.Get(ctx, endpoint)
	if err != nil {
		metrics.ObserveShowtimeRequest("error")
		return nil, fmt.Errorf("showtimes %s %s: %w", nativeID, date.Format("2006-01-02"), err)
	}

	var payload showtimesResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		metrics.ObserveShowtimeRequest("error")
		return nil, fmt.Errorf("decode showtimes %s: %w", nativeID, err)
	}

	if len(payload.Data) == 0 {
		metrics.ObserveShowtimeRequest("empty")
		return nil, nil
	}

	cinemas := make([]catalog.CinemaShowtimes, 0, len(payload.Data[0].Data))
	for _, block := range payload.Data[0].Data {
		entry := catalog.CinemaShowtimes{
			Cinema: catalog.Cinema{ID: block.YellowID, Name: block.YellowName},
			Times:  make([]catalog.Showtime, 0, len(block.Data)),
		}
		for _, st := range block.Data {
			dt, err := time.ParseInLocation(showDateTimeLayout, st.ShowDateTime, time.UTC)
			if err != nil {
				metrics.ObserveShowtimeRequest("error")
				return nil, fmt.Errorf("parse showtime %q for %s: %w", st.ShowDateTime, nativeID, err)
			}
			entry.Times = append(entry.Times, catalog.Showtime{
				DateTime:    dt,
				Version:     st.MVersion,
				VersionLong: st.MVersionLong,
			})
		}
		cinemas = append(cinemas, entry)
	}

	metrics.ObserveShowtimeRequest("ok")
	return cinemas, nil
}

package api

import (
	"database/sql"
	"time"
	"tmpl-backend/internal/core/types"
	"tmpl-backend/internal/database"
	"tmpl-backend/pkg/api"
)

func convertParameters(p types.JobParameters) api.JobParameters {
	return api.JobParameters{
		ModelVariant:     string(p.ModelVariant),
		TopicCount:       p.TopicCount,
		DistanceFunction: string(p.DistanceFunction),
		ResultCount:      p.ResultCount,
	}
}

func convertBundle(b types.VisualizationBundle) api.Visualization {
	return api.Visualization{
		ModelVariant: string(b.ModelVariant),
		TopicCount:   b.TopicCount,
		Location:     b.URL,
	}
}

func convertBundles(bs []types.VisualizationBundle) []api.Visualization {
	visuals := make([]api.Visualization, 0, len(bs))
	for _, b := range bs {
		visuals = append(visuals, convertBundle(b))
	}
	return visuals
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func convertSubmission(s database.Submission) api.Submission {
	sub := api.Submission{
		Id:             s.Id,
		WorkspaceId:    s.WorkspaceId.String,
		OriginalName:   s.OriginalName,
		SizeBytes:      s.SizeBytes,
		Pages:          s.Pages,
		Parameters:     convertParameters(s.Parameters.Data()),
		Status:         s.Status,
		ErrorKind:      s.ErrorKind.String,
		DurationMs:     s.DurationMs,
		CreationTime:   s.CreationTime,
		StartTime:      nullTime(s.StartTime),
		CompletionTime: nullTime(s.CompletionTime),
	}
	if s.ExitStatus.Valid {
		exit := int(s.ExitStatus.Int64)
		sub.ExitStatus = &exit
	}
	return sub
}

func convertSubmissions(ss []database.Submission) []api.Submission {
	subs := make([]api.Submission, 0, len(ss))
	for _, s := range ss {
		subs = append(subs, convertSubmission(s))
	}
	return subs
}

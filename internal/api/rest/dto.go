package rest

import (
	"github.com/feral-file/ff-asset-syncer/internal/reconcile"
)

// IssueResponse is one validation issue
type IssueResponse struct {
	AssetID   uint64 `json:"assetId"`
	AssetName string `json:"assetName"`
	TokenID   string `json:"tokenId,omitempty"`
	Field     string `json:"field"`
	Issue     string `json:"issue"`
	Severity  string `json:"severity"`
}

// ValidateResponse is returned by POST /validate
type ValidateResponse struct {
	RunID       string          `json:"runId"`
	TotalAssets int             `json:"totalAssets"`
	IssuesFound int             `json:"issuesFound"`
	Issues      []IssueResponse `json:"issues"`
}

// RepairedAssetResponse lists the changes written for one asset
type RepairedAssetResponse struct {
	AssetID   uint64   `json:"assetId"`
	AssetName string   `json:"assetName"`
	TokenID   string   `json:"tokenId,omitempty"`
	Changes   []string `json:"changes"`
}

// RepairResponse is returned by POST /repair
type RepairResponse struct {
	RunID         string                  `json:"runId"`
	TotalChecked  int                     `json:"totalChecked"`
	TotalRepaired int                     `json:"totalRepaired"`
	Failed        int                     `json:"failed"`
	Repaired      []RepairedAssetResponse `json:"repaired"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	LatestBlock uint64 `json:"latestBlock,omitempty"`
}

func toValidateResponse(report *reconcile.ValidationReport) ValidateResponse {
	issues := make([]IssueResponse, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issues = append(issues, IssueResponse{
			AssetID:   issue.AssetID,
			AssetName: issue.AssetName,
			TokenID:   issue.TokenID,
			Field:     issue.Field,
			Issue:     issue.Issue,
			Severity:  string(issue.Severity),
		})
	}
	return ValidateResponse{
		RunID:       report.RunID,
		TotalAssets: report.TotalAssets,
		IssuesFound: report.IssuesFound(),
		Issues:      issues,
	}
}

func toRepairResponse(report *reconcile.RepairReport) RepairResponse {
	repaired := make([]RepairedAssetResponse, 0, len(report.Repaired))
	for _, asset := range report.Repaired {
		changes := make([]string, 0, len(asset.Changes))
		for _, change := range asset.Changes {
			changes = append(changes, change.String())
		}
		repaired = append(repaired, RepairedAssetResponse{
			AssetID:   asset.AssetID,
			AssetName: asset.AssetName,
			TokenID:   asset.TokenID,
			Changes:   changes,
		})
	}
	return RepairResponse{
		RunID:         report.RunID,
		TotalChecked:  report.TotalChecked,
		TotalRepaired: report.TotalRepaired(),
		Failed:        report.Failed,
		Repaired:      repaired,
	}
}

package dtos

type DashboardStats struct {
	TotalApplications int64            `json:"totalApplications"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ActiveHunts       int64            `json:"activeHunts"`
	Profiles          int64            `json:"profiles"`
	// Share of submitted applications that reached interview or offer.
	ResponseRate float64 `json:"responseRate"`
}

package analytics

// DashboardStats is the headline card shown on the landing dashboard.
type DashboardStats struct {
	TotalCases                int64   `json:"total_cases"`
	ActiveCases               int64   `json:"active_cases"`
	ClosedCases               int64   `json:"closed_cases"`
	TotalTasks                int64   `json:"total_tasks"`
	OverdueTasks              int64   `json:"overdue_tasks"`
	CompletedTasks            int64   `json:"completed_tasks"`
	TotalClients              int64   `json:"total_clients"`
	TotalDocuments            int64   `json:"total_documents"`
	AverageCaseResolutionDays float64 `json:"average_case_resolution_days"`
}

// StatusCount is one bucket of a grouped count, keyed by the enum value.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// PriorityCount is one bucket of a per-priority grouped count.
type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int64  `json:"count"`
}

// CasePerformance summarises resolution throughput over closed cases.
type CasePerformance struct {
	TotalCasesResolved     int64   `json:"total_cases_resolved"`
	AverageResolutionDays  float64 `json:"average_resolution_days"`
	FastestResolutionDays  *int64  `json:"fastest_resolution_days"`
	SlowestResolutionDays  *int64  `json:"slowest_resolution_days"`
	CasesResolvedThisMonth int64   `json:"cases_resolved_this_month"`
	CasesResolvedLastMonth int64   `json:"cases_resolved_last_month"`
}

// UserWorkload is one user's share of the open caseload.
type UserWorkload struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	AssignedCases  int64  `json:"assigned_cases"`
	ActiveCases    int64  `json:"active_cases"`
	AssignedTasks  int64  `json:"assigned_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
	OverdueTasks   int64  `json:"overdue_tasks"`
}

// ClientStats aggregates case and document volume per client.
type ClientStats struct {
	ClientID       int64  `json:"client_id"`
	ClientName     string `json:"client_name"`
	Email          string `json:"email"`
	TotalCases     int64  `json:"total_cases"`
	ActiveCases    int64  `json:"active_cases"`
	ClosedCases    int64  `json:"closed_cases"`
	TotalDocuments int64  `json:"total_documents"`
}

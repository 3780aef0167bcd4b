package dto

// AwardXPRequest adds XP to the caller. max matches models.MaxXPAward.
type AwardXPRequest struct {
	Amount int `json:"amount" binding:"required,min=1,max=10000"`
}

// AwardBadgeRequest is a mentor handing a badge to a student
type AwardBadgeRequest struct {
	StudentID int64  `json:"studentId" binding:"required,min=1"`
	BadgeName string `json:"badgeName" binding:"required,notblank,max=100"`
	Icon      string `json:"icon" binding:"max=32"`
}

// Package services holds the business rules of the mentorship platform.
//
// Services defined in this package:
//   - AuthService: registration, login and refresh token rotation
//   - MentorshipService: the request/accept workflow that pairs a student with a mentor
//   - RoadmapService: learning plans and the unit review machines
//   - GamificationService: XP, levels, streaks and badges
//   - ChatService: direct messages between a paired student and mentor
//
// Services return apperrors sentinels; the HTTP layer maps them to status codes.
package services

package dtos

type SettingsRequest struct {
	Theme              string  `json:"theme" binding:"omitempty,oneof=light dark system"`
	EmailNotifications bool    `json:"emailNotifications"`
	AutomationEnabled  bool    `json:"automationEnabled"`
	DefaultProfileID   *string `json:"defaultProfileId" binding:"omitempty,uuid"`
}

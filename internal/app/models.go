package app

import "appointment-scheduler/internal/model"

type createAppointmentReq struct {
	Date        string  `json:"date" binding:"required"`
	Time        string  `json:"time" binding:"required"`
	ProviderID  string  `json:"provider_id" binding:"required"`
	RequesterID string  `json:"requester_id" binding:"required"`
	CaseID      *string `json:"case_id,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

type updateStatusReq struct {
	Status model.Status `json:"status" binding:"required"`
}

// appointmentResponse renders the appointment date as YYYY-MM-DD.
type appointmentResponse struct {
	*model.Appointment
	Date string `json:"date"`
}

func newAppointmentResponse(a *model.Appointment) appointmentResponse {
	return appointmentResponse{Appointment: a, Date: a.DateString()}
}

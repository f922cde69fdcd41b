// Package render turns appointment lifecycle events into the messages each
// audience receives. Event payloads carry times pre-formatted in the
// establishment's zone, so rendering is pure string assembly.
package render

import "fmt"

// Audiences a message can address.
const (
	AudiencePatient       = "patient"
	AudienceDoctor        = "doctor"
	AudienceEstablishment = "establishment"
)

// Topics this service subscribes to.
const (
	TopicBooked      = "booking.appointment.booked.v1"
	TopicCancelled   = "booking.appointment.cancelled.v1"
	TopicRescheduled = "booking.appointment.rescheduled.v1"
	TopicCompleted   = "booking.appointment.completed.v1"
)

// AppointmentEvent mirrors the payload published by the scheduling engine.
type AppointmentEvent struct {
	AppointmentID    string `json:"appointmentId"`
	PreviousID       string `json:"previousAppointmentId"`
	DoctorID         string `json:"doctorId"`
	DoctorName       string `json:"doctorName"`
	EstablishmentID  string `json:"establishmentId"`
	Establishment    string `json:"establishmentName"`
	PatientID        string `json:"patientId"`
	PatientName      string `json:"patientName"`
	PatientPhone     string `json:"patientPhone"`
	PatientEmail     string `json:"patientEmail"`
	StartTime        string `json:"startTime"`
	LocalDate        string `json:"localDate"`
	LocalTime        string `json:"localTime"`
	Timezone         string `json:"timezone"`
	ConsultationType string `json:"consultationType"`
	Fees             string `json:"fees"`
	CancelReason     string `json:"cancelReason"`
	CancelledBy      string `json:"cancelledBy"`
	OldLocalDate     string `json:"oldLocalDate"`
	OldLocalTime     string `json:"oldLocalTime"`
}

// Message is one rendered notification for one audience.
type Message struct {
	Audience string
	Subject  string
	Body     string
}

// Messages renders everything a lifecycle event should produce. Unknown
// topics render nothing.
func Messages(topic string, evt AppointmentEvent) []Message {
	doctor := evt.DoctorName
	if doctor == "" {
		doctor = "your doctor"
	}
	place := evt.Establishment
	if place == "" {
		place = "the clinic"
	}
	when := fmt.Sprintf("%s at %s", evt.LocalDate, evt.LocalTime)

	switch topic {
	case TopicBooked:
		msgs := []Message{{
			Audience: AudiencePatient,
			Subject:  "Appointment confirmed",
			Body:     fmt.Sprintf("Your appointment with %s at %s is confirmed for %s.", doctor, place, when),
		}}
		if evt.PatientName != "" {
			msgs = append(msgs, Message{
				Audience: AudienceDoctor,
				Subject:  "New appointment",
				Body:     fmt.Sprintf("%s booked an appointment at %s for %s.", evt.PatientName, place, when),
			})
		}
		return msgs

	case TopicCancelled:
		by := evt.CancelledBy
		if by == "" {
			by = "the patient"
		}
		body := fmt.Sprintf("The appointment with %s at %s on %s was cancelled by %s.", doctor, place, when, by)
		if evt.CancelReason != "" {
			body += " Reason: " + evt.CancelReason + "."
		}
		return []Message{
			{Audience: AudiencePatient, Subject: "Appointment cancelled", Body: body},
			{Audience: AudienceDoctor, Subject: "Appointment cancelled", Body: body},
			{Audience: AudienceEstablishment, Subject: "Appointment cancelled", Body: body},
		}

	case TopicRescheduled:
		old := fmt.Sprintf("%s at %s", evt.OldLocalDate, evt.OldLocalTime)
		body := fmt.Sprintf("Your appointment with %s at %s moved from %s to %s.", doctor, place, old, when)
		return []Message{
			{Audience: AudiencePatient, Subject: "Appointment rescheduled", Body: body},
			{Audience: AudienceDoctor, Subject: "Appointment rescheduled", Body: body},
		}

	case TopicCompleted:
		return []Message{{
			Audience: AudiencePatient,
			Subject:  "How was your visit?",
			Body:     fmt.Sprintf("Thanks for visiting %s at %s. We would love your feedback on the consultation.", doctor, place),
		}}
	}
	return nil
}

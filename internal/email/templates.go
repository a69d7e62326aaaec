package email

import (
	"fmt"
	"strings"
	"time"
)

// Message is a rendered member notice.
type Message struct {
	Subject string
	Body    string
}

type ReservationDetails struct {
	FacilityName string
	CourtName    string
	Start        time.Time
	End          time.Time
	Amount       string
}

type CancellationDetails struct {
	ReservationDetails
	RefundPercent int
	RefundAmount  string
}

func FormatDateTimeRange(start, end time.Time) (string, string) {
	date := start.Format("Monday, Jan 2, 2006")
	timeRange := fmt.Sprintf("%s - %s %s", start.Format("3:04 PM"), end.Format("3:04 PM"), start.Format("MST"))
	return date, timeRange
}

func facilityOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "your facility"
	}
	return name
}

func courtOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "your court"
	}
	return name
}

func BuildReservationConfirmed(details ReservationDetails) Message {
	date, timeRange := FormatDateTimeRange(details.Start, details.End)
	var b strings.Builder
	fmt.Fprintf(&b, "Your reservation at %s is confirmed.\n\n", facilityOrDefault(details.FacilityName))
	fmt.Fprintf(&b, "Court: %s\nDate: %s\nTime: %s\n", courtOrDefault(details.CourtName), date, timeRange)
	if details.Amount != "" {
		fmt.Fprintf(&b, "Charged: %s\n", details.Amount)
	}
	return Message{Subject: "Reservation Confirmed", Body: b.String()}
}

func BuildReservationCancelled(details CancellationDetails) Message {
	date, timeRange := FormatDateTimeRange(details.Start, details.End)
	var b strings.Builder
	fmt.Fprintf(&b, "Your reservation at %s has been cancelled.\n\n", facilityOrDefault(details.FacilityName))
	fmt.Fprintf(&b, "Court: %s\nDate: %s\nTime: %s\n", courtOrDefault(details.CourtName), date, timeRange)
	if details.RefundAmount != "" {
		fmt.Fprintf(&b, "Refund: %s (%d%%)\n", details.RefundAmount, details.RefundPercent)
	}
	return Message{Subject: "Reservation Cancelled", Body: b.String()}
}

func BuildHoldExpired(details ReservationDetails) Message {
	date, timeRange := FormatDateTimeRange(details.Start, details.End)
	body := fmt.Sprintf(
		"Your hold on %s for %s, %s expired before it was confirmed. The slot has been released.\n",
		courtOrDefault(details.CourtName), date, timeRange,
	)
	return Message{Subject: "Reservation Hold Expired", Body: body}
}

func BuildReservationRescheduled(details ReservationDetails, fee string) Message {
	date, timeRange := FormatDateTimeRange(details.Start, details.End)
	var b strings.Builder
	fmt.Fprintf(&b, "Your reservation has moved to %s, %s on %s.\n", date, timeRange, courtOrDefault(details.CourtName))
	if fee != "" {
		fmt.Fprintf(&b, "Reschedule fee: %s\n", fee)
	}
	return Message{Subject: "Reservation Rescheduled", Body: b.String()}
}

func BuildRecurringConfirmed(details ReservationDetails, occurrences int, rule string) Message {
	body := fmt.Sprintf(
		"%d recurring reservations (%s) on %s are confirmed. Total charged: %s\n",
		occurrences, rule, courtOrDefault(details.CourtName), details.Amount,
	)
	return Message{Subject: "Recurring Reservations Confirmed", Body: body}
}

func BuildDepositSettled(amount string, approved bool) Message {
	if approved {
		return Message{
			Subject: "Deposit Approved",
			Body:    fmt.Sprintf("Your deposit of %s has been added to your wallet.\n", amount),
		}
	}
	return Message{
		Subject: "Deposit Rejected",
		Body:    fmt.Sprintf("Your deposit request of %s was rejected.\n", amount),
	}
}

package chat

import (
	"fmt"
	"strings"

	"datekeeper/internal/models"
	"datekeeper/internal/services"
)

const (
	textHelp = "Commands:\n" +
		"/add - save a date\n" +
		"/dates - show your dates\n" +
		"/edit - change the last date in your list\n" +
		"/delete - delete a date\n" +
		"/gift - get gift ideas\n" +
		"/menu - back to the main menu"

	textAskEvent      = "📅 Send the date and event as:\nDDMMYYYY Name"
	textInvalidFormat = "❌ Invalid format! Use: DDMMYYYY Name"
	textMissingName   = "❌ Add the event name after the date!"
	textDateInPast    = "❌ The date must not be in the past!"
	textAllSaved      = "✅ All events saved!"
	textNoEventsEdit  = "There are no events to edit."
	textEditMissing   = "That event no longer exists. Send /dates to see your list."
	textNoDates       = "📅 You have no saved dates yet."
	textGiftHint      = "🎁 Looks like you mentioned an important occasion! Want help choosing a gift? Send /gift and I'll suggest a few ideas."

	textAskDelete     = "Send the event to delete as `DDMMYYYY Name`, or just its name to delete every event with that name."
	textDeleteFormat  = "Invalid format. Use: `DDMMYYYY Name`"
	textDeleted       = "Event deleted ✅"
	textDeleteMissing = "Event not found. Make sure you typed it exactly."

	textGiftUnavailable  = "Gift ideas are not available right now."
	textGiftLimitPeek    = "❌ Limit reached! Try again tomorrow."
	textGiftWait         = "⏳ Please wait, generating gift ideas..."
	textGiftFailed       = "⚠️ Could not generate ideas. Please try again later."
	textMainMenu         = "🔘 Main menu\n\n" + textHelp
	textUnknownCommand   = "Unknown command. Send /help for the list."
	textIdleHint         = "Send /add to save a date or /help for the list of commands."
	textGenericError     = "⚠️ Something went wrong. Please try again."
	textAdminPanel       = "Admin panel:\n/stats - statistics\n/broadcast - message every user"
	textAskBroadcast     = "Send the message to broadcast, or /cancel to abort."
	textBroadcastStarted = "🔄 Broadcast started..."
	textBroadcastEmpty   = "The broadcast message is empty."
)

func textStart(name string) string {
	return fmt.Sprintf("🕒 Hi, %s! I'll help you always remember important dates.\n\n"+
		"📅 How it works:\n"+
		"1. Send a date as *DDMMYYYY* followed by the event name\n"+
		"2. I save it to your personal calendar\n"+
		"3. You get a reminder right here, in this chat, when the time comes\n\n"+
		"_Example:_ `15082026 Company anniversary`\n\n"+
		"🚀 Try it now with /add!", name)
}

func textLimitReached(max int) string {
	return fmt.Sprintf("❌ Limit reached! You can't store more than %d events.\nDelete events with /delete", max)
}

func textSaved(ev *models.Event) string {
	return fmt.Sprintf("✅ Saved: %s - %s\nAdd another (/more), edit it (/edit) or finish (/done)?", ev.DisplayDate(), ev.Name)
}

func textUpdated(ev *models.Event) string {
	return fmt.Sprintf("✏️ Updated: %s - %s", ev.DisplayDate(), ev.Name)
}

func textEditing(ev *models.Event) string {
	return fmt.Sprintf("You are editing:\n📅 %s - %s\n\nSend the new date and name as DDMMYYYY Name.", ev.DisplayDate(), ev.Name)
}

func textDeletedMany(n int64) string {
	if n == 1 {
		return textDeleted
	}
	return fmt.Sprintf("Deleted %d events ✅", n)
}

func textDates(events []models.Event) string {
	var b strings.Builder
	b.WriteString("📅 Your saved dates:\n\n")
	b.WriteString("The list updates itself once an event has passed.\n")
	b.WriteString("To delete a date early, use /delete.\n\n")
	for i, e := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s - %s", e.DisplayDate(), e.Name)
	}
	return b.String()
}

func textAskGift(remaining int) string {
	return fmt.Sprintf("🎁 Tell me who the gift is for:\n"+
		"• Who they are (friend, partner, parent)\n"+
		"• Interests and hobbies\n"+
		"• Budget (if it matters)\n\n"+
		"You have %d request(s) left today. /menu to go back.", remaining)
}

func textGiftLimit(limit int) string {
	return fmt.Sprintf("❌ Limit reached! You can use this command only %d times a day.", limit)
}

func textGiftIdeas(ideas string) string {
	return "🎁 *Gift ideas:*\n\n" + ideas
}

func textStats(s models.Stats) string {
	return fmt.Sprintf("📊 **Bot statistics**\n\n"+
		"👥 Total users: %d\n"+
		"🔥 Active (30 days): %d\n"+
		"🎁 /gift calls today: %d (limit %d per user)\n"+
		"👤 Users who asked for gifts today: %d",
		s.TotalUsers, s.ActiveUsers, s.GiftCallsToday, s.GiftDailyLimit, s.GiftUsersToday)
}

func textBroadcastDone(r services.BroadcastResult) string {
	return fmt.Sprintf("📢 Broadcast finished:\n• Delivered: %d\n• Failed: %d", r.Success, r.Failed)
}

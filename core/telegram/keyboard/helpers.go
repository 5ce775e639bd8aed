package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is a transport-neutral inline button.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

const defaultCancelButtonText = "❌ Cancel"

// CancelBtn returns the standard cancel button bound to unique.
func CancelBtn(unique string) InlineBtn {
	return InlineBtn{Text: defaultCancelButtonText, Unique: unique, Data: "cancel"}
}

// Rows lays buttons out n per row; n <= 1 puts each on its own row.
func Rows(buttons []InlineBtn, n int) [][]InlineBtn {
	if n < 1 {
		n = 1
	}
	rows := make([][]InlineBtn, 0, (len(buttons)+n-1)/n)
	for start := 0; start < len(buttons); start += n {
		end := min(start+n, len(buttons))
		rows = append(rows, buttons[start:end])
	}
	return rows
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn. It
// returns nil when there is nothing to show.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	markup.InlineKeyboard = inline
	return markup
}

// SingleCancelMarkup creates an inline keyboard holding only a cancel button.
func SingleCancelMarkup(unique string) *tele.ReplyMarkup {
	return InlineButtonsRows([]InlineBtn{CancelBtn(unique)})
}

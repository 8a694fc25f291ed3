package views

// ellipsis — маркер сокращённого текста.
const ellipsis = "..."

// ShortenWithEllipsis сокращает текст до budget символов (рун).
// Текст длиннее бюджета обрезается до budget-3 символов и дополняется "...",
// так что результат никогда не превышает budget.
func ShortenWithEllipsis(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	if budget <= len(ellipsis) {
		return string(runes[:max(budget, 0)])
	}
	return string(runes[:budget-len(ellipsis)]) + ellipsis
}

package vision

// Prompt asks for a dentist's Markdown finding about one photo view.
func Prompt(viewLabel string) string {
	return "この" + viewLabel + "の口腔内写真について、歯科医の視点から詳細に分析してください。\n" +
		"分析結果はMarkdown形式で、箇条書きなどを用いて分かりやすく記述してください。"
}

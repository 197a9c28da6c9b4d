package ai

import "github.com/campaign-agent/internal/models"

// Content generation prompts
const (
	ContentGenerationSystemPrompt = `You are a marketing copywriter who turns trending topics into platform-native social content.

Your writing style:
%s

General rules:
- Write for the platform's audience and format, never cross-post the same text
- Be accurate; do not invent statistics, quotes or sources
- Hashtags go in the hashtags array, not in the body`

	ContentGenerationUserPrompt = `Write a %s post about the following topic.

Topic: %s

Platform guidelines:
%s

Respond in JSON format:
{
  "title": "<post title>",
  "body": "<the full post body>",
  "hashtags": ["<hashtag1>", "<hashtag2>"],
  "image_prompt": "<2-5 keywords describing a fitting cover photo>"
}`
)

// platformGuidelines are the per-destination format rules
var platformGuidelines = map[models.Platform]string{
	models.PlatformWeChat: `- WeChat Official Account article, written in Simplified Chinese
- Title under 30 characters, informative rather than clickbait
- 800-1500 characters, 4-6 short sections with clear subheadings
- End with a question that invites comments`,

	models.PlatformXHS: `- Xiaohongshu (RED) note, written in Simplified Chinese
- Title under 20 characters with one emoji
- 300-600 characters, personal and practical tone, short lines
- 5-8 hashtags`,

	models.PlatformGoogleDocs: `- Long-form briefing document in English
- Descriptive title
- 600-1200 words with an executive summary, key points and suggested next steps
- 3-5 hashtags for internal tagging`,
}

// platformDisplayName is used inside prompts
var platformDisplayName = map[models.Platform]string{
	models.PlatformWeChat:     "WeChat",
	models.PlatformXHS:        "Xiaohongshu",
	models.PlatformGoogleDocs: "Google Docs",
}

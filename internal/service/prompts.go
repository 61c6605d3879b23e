package service

import (
	"fmt"
	"strings"
)

// Copy modes. Guided walks five proven frameworks, expert emulates a
// named copywriter, kenny uses the house style.
const (
	CopyModeGuided = "guided"
	CopyModeExpert = "expert"
	CopyModeKenny  = "kenny"
)

// Content marketing platforms.
const (
	PlatformWhatsApp  = "whatsapp"
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
)

// Brainstorm types.
const (
	BrainstormProduct   = "product"
	BrainstormMarketing = "marketing"
	BrainstormContent   = "content"
)

// copyPrompts builds the system and user prompts for a sales copy
// generation.
func copyPrompts(p CopyParams) (system, user string) {
	context := productContext(p.ProductName, p.ProductDescription, p.TargetAudience, p.UniqueValue)

	switch p.Mode {
	case CopyModeKenny:
		system = "You are Kenny Nwokoye, a Nigerian entrepreneur and digital marketing genius and expert known for his persuasive, conversational, and no-fluff approach with consistency in making crazy sales."
		user = fmt.Sprintf(`Write a high-converting sales copy in the style of Kenny Nwokoye.
The tone should be energetic, engaging, and direct, using storytelling, bold statements, emotional triggers, and a clear call to action.
Use short, punchy sentences, occasional capital letters, and relevant emojis to make the message pop. DO NOT use markdown formatting like asterisks (**).
The copy should focus on the product %s, highlight key pain points, and position the solution as a must-have.
End with a strong sense of urgency and a compelling CTA.

%s`, p.ProductName, context)

	case CopyModeExpert:
		system = fmt.Sprintf("You are an expert copywriter emulating the legendary style of %s. Generate compelling marketing content that captures their unique voice, persuasion techniques, and proven frameworks. Focus on conversion-driven copy that sells.", p.Copywriter)
		user = fmt.Sprintf(`%s

In the distinctive style of %s, create a comprehensive marketing package with real, ready-to-use copy:

**1. HEADLINE OPTIONS (5 variations)**
Create 5 different headline options that grab attention and promise transformation.

**2. COMPLETE SALES LETTER (500-700 words)**
Write a full persuasive sales letter that opens with a hook on the main pain point, builds desire, handles objections, creates urgency, and ends with a compelling call-to-action.

**3. SHORT AD COPY (5 variations, 50-100 words each)**
Short-form ad copies for Facebook/Instagram ads, Google ads, and social posts.

**4. MARKETING STRATEGY**
Specific, actionable advice on platforms, audience targeting, messaging angles, and budget allocation.

Make every piece authentic to %s's proven techniques. Focus on benefits over features, create emotional resonance, and drive immediate action.`,
			context, p.Copywriter, p.Copywriter)

	default: // guided
		system = "You are an expert marketing copywriter specializing in high-converting ad copy using proven frameworks. Generate real, ready-to-use copy that drives sales."
		user = fmt.Sprintf(`%s

Generate 5 complete ad copy variations, one for each proven framework below. Each should be ready to use immediately in marketing campaigns.

**For each framework, provide:**
1. **Headline** - Attention-grabbing, benefit-focused (10-15 words)
2. **Body Copy** - Compelling story/pitch (75-150 words)
3. **Call-to-Action** - Specific, action-oriented (5-10 words)

**Frameworks:**
1. **AIDA (Attention, Interest, Desire, Action)**
2. **PAS (Problem, Agitate, Solution)**
3. **Storytelling** - narrative and emotional connection selling transformation
4. **Direct Offer** - straightforward value proposition with clear benefits
5. **Scarcity & Authority** - urgency, social proof, and expert positioning

Format each as ready-to-use copy that can be immediately deployed in ads, emails, or landing pages.`, context)
	}
	return system, user
}

// contentMarketingPrompts builds the prompts for a platform-specific
// content package.
func contentMarketingPrompts(p ContentMarketingParams) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Product/Service: %s\n", p.ProductDescription)
	if p.TargetAudience != "" {
		fmt.Fprintf(&b, "Target Audience: %s\n", p.TargetAudience)
	}
	if p.ContentGoal != "" {
		fmt.Fprintf(&b, "Content Goal: %s\n", p.ContentGoal)
	}
	context := b.String()

	switch p.Platform {
	case PlatformWhatsApp:
		system = "You are an expert WhatsApp Business marketing strategist specializing in direct messaging campaigns that drive engagement and conversions."
		user = fmt.Sprintf(`Generate WhatsApp Business content for the following:

%s
Create a complete WhatsApp marketing package with:

1. **BROADCAST MESSAGE (Opening Hook)** - attention-grabbing first message under 160 characters, working without images or formatting
2. **FOLLOW-UP MESSAGE SERIES (3-5 messages)** - natural conversation flow building interest and trust, with strategic emojis and engaging questions
3. **STATUS UPDATES (3 variations)** - short, impactful 24-hour status content with call-to-action
4. **RESPONSE TEMPLATES** - FAQ responses, objection handling, closing messages

Make it conversational, personal, and optimized for mobile reading.`, context)

	case PlatformInstagram:
		system = "You are an expert Instagram content creator and social media strategist who creates viral, engaging content that drives results."
		user = fmt.Sprintf(`Generate Instagram content for the following:

%s
Create a complete Instagram content package with:

1. **FEED POST (3 variations)** - engaging caption with hook, strategic hashtags (15-25, mixing popular and niche), call-to-action, emoji usage
2. **STORY SEQUENCE (5-7 slides)** - text overlays, engagement stickers, link placement, story-specific hooks
3. **REEL SCRIPT** - hook in the first 3 seconds, value delivery, CTA, trending audio and on-screen text suggestions
4. **CAROUSEL POST OUTLINE** - 7-10 slide structure with a headline per slide and design direction notes

Make it visually descriptive, trendy, and optimized for Instagram's algorithm.`, context)

	default: // tiktok
		system = "You are a viral TikTok content strategist and script writer who understands trends, hooks, and the platform's unique algorithm."
		user = fmt.Sprintf(`Generate TikTok content for the following:

%s
Create a complete TikTok content package with:

1. **VIRAL VIDEO SCRIPTS (5 different concepts)** - for each: hook (first 1-3 seconds), 15-60 second script, visual directions, text overlays, trending sound recommendations, hashtag strategy
2. **CONTENT FRAMEWORKS** - POV scenarios, before/after reveals, trending format adaptations, educational scripts
3. **ENGAGEMENT TACTICS** - comment bait, duet/stitch opportunities, series ideas for retention

Make it punchy, fast-paced, native to TikTok's style, and optimized for the For You Page. Focus on hooks that stop the scroll.`, context)
	}
	return system, user
}

// brainstormPrompts builds the prompts for an idea brainstorm.
func brainstormPrompts(p BrainstormParams) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic/Challenge: %s\n", p.Topic)
	if p.Context != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n", p.Context)
	}
	context := b.String()

	format := `Generate 6-8 unique ideas. For each idea, provide:
1. **Title** (catchy, descriptive name)
2. **Description** (clear explanation and how it works)
3. **Potential** (why it could succeed)`

	switch p.Type {
	case BrainstormProduct:
		system = "You are an innovative product strategist and idea generator who thinks outside the box to create unique, viable product concepts."
		user = fmt.Sprintf(`Brainstorm product ideas for:

%s
%s

Think creatively but practically: unmet market needs, innovative solutions to existing problems, technology trends, different price points, and implementation feasibility.`, context, format)

	case BrainstormMarketing:
		system = "You are a creative marketing strategist who develops innovative, results-driven campaign ideas that capture attention and drive conversions."
		user = fmt.Sprintf(`Brainstorm marketing campaign ideas for:

%s
%s

Think about multi-channel integration, viral potential, emotional triggers and storytelling, seasonal opportunities, budget and ROI, and angles competitors aren't using.`, context, format)

	default: // content
		system = "You are a content strategist and creator who generates engaging, valuable content ideas that attract and retain audiences."
		user = fmt.Sprintf(`Brainstorm content ideas for:

%s
%s

Consider blog posts, video content (YouTube, TikTok, Reels), social media series, podcasts, infographics, and interactive content. Focus on value, engagement, and shareability.`, context, format)
	}
	return system, user
}

func productContext(name, description, audience, uniqueValue string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product Name: %s\n", name)
	fmt.Fprintf(&b, "Description: %s\n", description)
	if audience != "" {
		fmt.Fprintf(&b, "Target Audience: %s\n", audience)
	}
	if uniqueValue != "" {
		fmt.Fprintf(&b, "Unique Value: %s\n", uniqueValue)
	}
	return b.String()
}

package longform

import (
	"fmt"
	"strings"
)

const podcastRule = `
You are an audio-first content generation system producing publish-ready podcast dialogue.

FORMAT RULES (MANDATORY)
Output must be dialogue only
Two hosts only:
Host 1: {{FIRST}}
Host 2: {{SECOND}}
Write in natural conversational turns
No stage directions of any kind
(no music cues, no sound notes, no parentheticals, no production markers)
No headings, no bullet points, no narration labels beyond speaker names

TONE & STYLE
Calm, analytical, and conversational
Curious but skeptical
No sensationalism
No moralizing
No certainty beyond evidence
Language suitable for a serious current-affairs podcast
Dialogue should sound like:
Two informed journalists thinking out loud together
not reading a script, not debating theatrically

CONTENT CONSTRAINTS
Do not invent facts
Clearly separate:
verified information
plausible explanations
speculation
When evidence is weak or missing, say so plainly
Prefer known mechanisms over exotic explanations unless evidence demands otherwise
Treat viral claims with skepticism, not ridicule

STRUCTURAL FLOW (IMPLICIT DO NOT LABEL)
Each episode should naturally progress through:
What is being claimed
What is actually known
Where the claim originated
Technical, scientific, or medical realities
Alternative explanations
Why confusion spread
What conclusions are justified right now

EXPERT USE
Experts may be referenced or quoted
Quotes must be framed as expert commentary, not definitive proof
Avoid appeals to authority; emphasize reasoning

PROHIBITIONS
No directions like music fades, pause, cue, etc.
No host monologues longer than ~20-25 seconds of spoken audio
No absolute conclusions unless supported by strong, independent evidence
No emotional manipulation language

SUCCESS CRITERIA
A listener should feel:
Informed, not inflamed
Oriented, not overwhelmed
Confident about what is known vs. unknown
The output must be immediately recordable without editing.
`

func systemRule(mode Mode, minWords int, hosts Hosts) string {
	if mode == ModePodcast {
		return strings.NewReplacer("{{FIRST}}", hosts.First, "{{SECOND}}", hosts.Second).Replace(podcastRule)
	}
	return fmt.Sprintf(`
You are a helpful assistant. Produce a detailed article of at least %d words.
Do not restart the content; continue from where you left off if asked to continue.
If you finish before %d words, continue writing until the minimum is reached.
`, minWords, minWords)
}

func userPrompt(mode Mode, source string, minWords int) string {
	kind := "structured article"
	if mode == ModePodcast {
		kind = "podcast script"
	}
	return fmt.Sprintf(`
Topic and source:
%s

Instructions:
Write a %s of at least %d words.
Include sections, examples, and transitions. Do not stop early.
`, source, kind, minWords)
}

func continuationPrompt(produced, minWords int, context string) string {
	return fmt.Sprintf(`
Continue the previous content. You have produced %d words so far.
Do not restart. Continue from where you left off and expand until you reach at least %d words.
Context (last part of previous output):
%s
`, produced, minWords, context)
}

func articleSegmentPrompt(section, tail, source string) string {
	note := ""
	if tail != "" {
		note = "\n\nContinuation context (last lines from previous section):\n" + tail + "\n"
	}
	return "Section focus: " + section + ". Source content below." + note + "\n" + source
}

func podcastSegmentPrompt(section, tail, source string, continuing bool, hosts Hosts) string {
	note := ""
	if tail != "" {
		note = "\nCONTINUATION CONTEXT (last lines from previous segment):\n\"\"\"\n" + tail + "\n\"\"\"\n"
	}
	handover := fmt.Sprintf(`
You are continuing a seamless conversation.
Do NOT start with "Welcome back" or "Next up."
Pick up exactly where the previous segment left off.
If %s was asking a question in the context above, %s should answer it immediately.
[MID-ROLL GUARD]: isContinuing=%t. If true, YOU MUST NOT use any of the following: "Welcome back," "Next topic," "Moving on," "Hi everyone," or any host names in a greeting context. You are mid-sentence. Start the response with a direct counter-point or a continuation of the last thought provided in the context.
`, hosts.First, hosts.Second, continuing)
	return "Section focus: " + section + ". Source content below." + note + "\n" + handover + "\n" + source
}

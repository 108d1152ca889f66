package speech

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/duet/internal/persona"
)

// Voice is one voice offered by an engine.
type Voice struct {
	// ID is the value passed to the engine's voice flag.
	ID       string
	Name     string
	Language string
}

// parseSayVoices parses `say -v ?` output:
//
//	Alex                en_US    # Most people recognize me by my voice.
//	Bad News            en_US    # The light you see at the end of the tunnel...
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, Voice{ID: name, Name: name, Language: fields[len(fields)-1]})
	}
	return voices
}

// parseEspeakVoices parses `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{ID: fields[1], Name: fields[3], Language: fields[1]})
	}
	return voices
}

// AssignVoices picks a voice per agent. Voices whose language matches
// pattern are preferred; the first two distinct ones go to the agents in
// order. With a single candidate both agents share it. Explicit overrides
// win. Agents left unassigned use the engine default.
func AssignVoices(voices []Voice, pattern string, order []persona.AgentID, overrides map[persona.AgentID]string) (map[persona.AgentID]string, error) {
	candidates := voices
	if pattern != "" {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, err
		}
		var matched []Voice
		for _, v := range voices {
			if g.Match(strings.ToLower(v.Language)) {
				matched = append(matched, v)
			}
		}
		if len(matched) > 0 {
			candidates = matched
		}
	}

	assigned := make(map[persona.AgentID]string, len(order))
	if len(candidates) > 0 {
		for i, agent := range order {
			idx := i
			if idx >= len(candidates) {
				idx = len(candidates) - 1
			}
			assigned[agent] = candidates[idx].ID
		}
	}

	for agent, id := range overrides {
		if id != "" {
			assigned[agent] = id
		}
	}
	return assigned, nil
}

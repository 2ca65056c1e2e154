package game

import (
	"fmt"
	"github.com/myrjola/verdict/internal/models"
)

func premise(verdict models.Verdict) string {
	return fmt.Sprintf(`We are playing a role-playing game in which the user acts as judge and jury, interrogating a `+
		`defendant. In this game the defendant is %s.`, verdict)
}

func objectiveFactsSystemPrompt(verdict models.Verdict) string {
	return premise(verdict)
}

func objectiveFactsInstruction(verdict models.Verdict) string {
	return fmt.Sprintf(`Invent a fictional court case for this game. The user will question the defendant to work out `+
		`whether they are guilty. For now we only establish the secret ground truth: write a description of an `+
		`interesting case of about 300 words. State all the OBJECTIVE FACTS of the case from an omniscient `+
		`perspective so that the description can be used later as a reference while role-playing the defendant. `+
		`The defendant must be %s.`, verdict)
}

func dossierSystemPrompt(facts models.CaseFacts) string {
	return fmt.Sprintf(`%s These are the objective facts established behind the scenes. The user must not learn `+
		`all of them: %s`, premise(facts.TrueVerdict), facts.ObjectiveFacts)
}

const dossierInstruction = `Write a dossier that summarizes the case for the user and gives them the background ` +
	`to start their investigation. Leave out anything from the objective facts that the defendant would conceal ` +
	`and anything that gives away the verdict. Keep it interesting and succinct, about 300 words.`

func defendantSystemPrompt(facts models.CaseFacts) string {
	return fmt.Sprintf(`%s These are the objective facts established behind the scenes. The user must not learn `+
		`all of them: %s From now on, role-play as the defendant and try to convince the user of your innocence.`,
		premise(facts.TrueVerdict), facts.ObjectiveFacts)
}

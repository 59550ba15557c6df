package core

// prompts.go holds the French prompts used for extraction and for the
// guidance reply.  They are plain constants so they can be tuned without
// touching the orchestration code.

const (
	// SystemPrompt is the persona for the guidance reply.  It lists the seven
	// mandatory prescription items in the same order as the record.
	SystemPrompt = "Tu es un assistant medical specialise dans la redaction d'ordonnances.\n\n" +
		"LANGUE: FRANCAIS UNIQUEMENT. Jamais d'espagnol, d'anglais ou d'autre langue.\n\n" +
		"Informations OBLIGATOIRES pour une ordonnance:\n" +
		"1. Nom du patient\n" +
		"2. Age ou date de naissance\n" +
		"3. Diagnostic\n" +
		"4. Medicament\n" +
		"5. Posologie (dosage et frequence)\n" +
		"6. Duree du traitement\n" +
		"7. Instructions speciales\n\n" +
		"Sois clair, concis et professionnel. Ne pose jamais de diagnostic toi-meme."

	// ExtractionSystemPrompt keeps the extraction call terse.  Small models
	// follow a fixed line format far more reliably than free JSON.
	ExtractionSystemPrompt = "Tu es un expert medical. Tu recopies les informations d'ordonnance " +
		"presentes dans un texte, sans rien inventer ni commenter."

	// extractionKnownHeader introduces fields already collected in earlier turns.
	extractionKnownHeader = "Informations deja connues:\n"

	// extractionInstruction follows the user's text and precedes the line template.
	extractionInstruction = "Reponds avec exactement les sept lignes ci-dessous, dans cet ordre, " +
		"au format \"Libelle: valeur\" et sans autre texte. Recopie la valeur telle qu'elle apparait " +
		"dans le texte. Ecris " + AbsentMarker + " quand le texte ne donne pas l'information."

	// AbsentMarker is what the model is asked to write for unknown fields.  It
	// is itself an absence phrase, so such lines are dropped when parsed.
	AbsentMarker = "Absent"

	// replyTemplate is filled with the collected fields, the missing labels and
	// the user's message.
	replyTemplate = "Infos collectees:\n%s\n\n" +
		"Infos manquantes obligatoires:\n%s\n\n" +
		"Message utilisateur: %s\n\n" +
		"Reponds en francais en deux phrases au plus. Confirme les infos recues et demande les infos manquantes."

	// replyCompleteTemplate is used once nothing is missing.
	replyCompleteTemplate = "Infos collectees:\n%s\n\n" +
		"Message utilisateur: %s\n\n" +
		"Toutes les informations obligatoires sont reunies. Reponds en francais en une phrase: " +
		"confirme et indique que l'ordonnance peut etre generee et signee."

	// FallbackReply is returned when the guidance reply cannot be generated.
	FallbackReply = "Erreur: le modele n'a pas pu repondre. Vos informations ont ete enregistrees, " +
		"merci de reformuler ou de completer votre message."
)

package config

// Entry is a single default key/value pair inside a layer.
type Entry struct {
	Key   string
	Value string
}

// Layer is an ordered default table for one service. Layers are applied
// insert-if-absent: a key already present in the accumulating set is never
// replaced by a layer default.
type Layer struct {
	Name    string
	Entries []Entry
}

// BackendDefaults returns the default table for the agixt API service.
func BackendDefaults() Layer {
	return Layer{
		Name: "backend",
		Entries: []Entry{
			{"AGIXT_AUTO_UPDATE", "true"},
			{"AGIXT_BRANCH", "stable"},
			{"AGIXT_REQUIRE_API_KEY", "true"},
			{"AGIXT_PORT", "7437"},
			{"UVICORN_WORKERS", "10"},
			{"WORKING_DIRECTORY", "./WORKSPACE"},
			{"TZ", "Europe/Paris"},
			{"DATABASE_TYPE", "sqlite"},
			{"DATABASE_NAME", "models/agixt"},
			{"LOG_LEVEL", "INFO"},
			{"LOG_FORMAT", "%(asctime)s | %(levelname)s | %(message)s"},
			{"ALLOWED_DOMAINS", "*"},
			{"ENABLE_GRAPHQL", "true"},
			{"GRAPHIQL", "true"},
		},
	}
}

// FrontendDefaults returns the default table for the interactive web service.
func FrontendDefaults() Layer {
	return Layer{
		Name: "frontend",
		Entries: []Entry{
			{"APP_NAME", "AGiXT"},
			{"APP_DESCRIPTION", "AGiXT - AI Agent Automation Platform"},
			{"APP_URI", "http://localhost:3437"},
			{"AUTH_WEB", "http://localhost:3437/user"},
			{"INTERACTIVE_PORT", "3437"},
			{"AGIXT_AGENT", "XT"},
			{"AGIXT_SHOW_SELECTION", "agent,conversation"},
			{"AGIXT_SHOW_AGENT_BAR", "true"},
			{"AGIXT_SHOW_APP_BAR", "true"},
			{"AGIXT_CONVERSATION_MODE", "select"},
			{"INTERACTIVE_MODE", "chat"},
			{"THEME_NAME", "doom"},
			{"AGIXT_FOOTER_MESSAGE", "Powered by AGiXT"},
			{"AGIXT_FILE_UPLOAD_ENABLED", "true"},
			{"AGIXT_VOICE_INPUT_ENABLED", "true"},
			{"AGIXT_RLHF", "true"},
			{"AGIXT_ALLOW_MESSAGE_EDITING", "true"},
			{"AGIXT_ALLOW_MESSAGE_DELETION", "true"},
			{"AGIXT_SHOW_OVERRIDE_SWITCHES", "tts,websearch,analyze-user-input"},
			{"AUTH_PROVIDER", "magicalauth"},
			{"ALLOW_EMAIL_SIGN_IN", "true"},
			{"CREATE_AGENT_ON_REGISTER", "true"},
			{"CREATE_AGIXT_AGENT", "true"},
		},
	}
}

// InferenceDefaults returns the default table for the ezlocalai service.
func InferenceDefaults() Layer {
	return Layer{
		Name: "inference",
		Entries: []Entry{
			{"EZLOCALAI_PORT", "8091"},
			{"EZLOCALAI_UI_PORT", "8502"},
			{"EZLOCALAI_TEMPERATURE", "1.33"},
			{"EZLOCALAI_TOP_P", "0.95"},
			{"EZLOCALAI_VOICE", "DukeNukem"},
			{"THREADS", "4"},
			{"GPU_LAYERS", "0"},
			{"WHISPER_MODEL", "base.en"},
			{"IMG_ENABLED", "false"},
			{"AUTO_UPDATE", "true"},
		},
	}
}

// DefaultLayers returns the service layers in their fixed application order.
func DefaultLayers() []Layer {
	return []Layer{BackendDefaults(), FrontendDefaults(), InferenceDefaults()}
}

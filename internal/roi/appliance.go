package roi

var applianceAdvice = map[OutputCategory][3]string{
	OutputHigh: {
		"Run high-consumption appliances (AC, washing machine, water heater) during peak daylight hours.",
		"Consider EV charging between 10 AM and 3 PM to maximize solar self-consumption.",
		"Evaluate adding battery backup for evening load shifting.",
	},
	OutputMedium: {
		"Prioritize daytime usage for medium-load appliances like washing machine and fridge defrost cycles.",
		"Use smart plugs/timers to stagger appliance use and reduce grid dependency.",
		"Target 60-70% self-consumption by aligning usage with sunlight availability.",
	},
	OutputLow: {
		"Use solar power primarily for essential daytime appliances such as lights, fans, and laptop charging.",
		"Improve efficiency first (LEDs, inverter appliances) before expanding solar capacity.",
		"Consider rooftop maintenance and orientation adjustments to improve output.",
	},
}

// ApplianceRecommendations returns the three scheduling tips for a
// category. Unknown categories get the Medium tips.
func ApplianceRecommendations(category OutputCategory) []string {
	tips, ok := applianceAdvice[category]
	if !ok {
		tips = applianceAdvice[OutputMedium]
	}
	return tips[:]
}

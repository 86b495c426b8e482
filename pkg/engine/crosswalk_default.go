package engine

// defaultCrosswalk is the built-in table. Never mutate it; hand out clones.
var defaultCrosswalk = Crosswalk{
	CategoryMFA: {
		FrameworkISO27001:       {{Framework: FrameworkISO27001, Clause: "A.5.17", Title: "Authentication information"}},
		FrameworkSOC2:           {{Framework: FrameworkSOC2, Clause: "CC6.1", Title: "Logical access controls"}},
		FrameworkNISTCSF:        {{Framework: FrameworkNISTCSF, Clause: "PR.AC-1", Title: "Identities managed"}},
		FrameworkPCIDSS:         {{Framework: FrameworkPCIDSS, Clause: "8.4", Title: "Multi-factor authentication"}},
		FrameworkEssentialEight: {{Framework: FrameworkEssentialEight, Clause: "AC", Title: "Access control (maturity)"}},
		FrameworkGDPR:           {{Framework: FrameworkGDPR, Clause: "Art. 32", Title: "Security of processing (access control)"}},
	},
	CategoryEncryption: {
		FrameworkISO27001:       {{Framework: FrameworkISO27001, Clause: "A.8.24", Title: "Cryptography"}},
		FrameworkSOC2:           {{Framework: FrameworkSOC2, Clause: "CC6.7", Title: "Encryption protections"}},
		FrameworkNISTCSF:        {{Framework: FrameworkNISTCSF, Clause: "PR.DS-1", Title: "Data-at-rest protected"}},
		FrameworkPCIDSS:         {{Framework: FrameworkPCIDSS, Clause: "3.5", Title: "Protect stored account data"}},
		FrameworkEssentialEight: {{Framework: FrameworkEssentialEight, Clause: "DM", Title: "Data protection (maturity)"}},
		FrameworkGDPR:           {{Framework: FrameworkGDPR, Clause: "Art. 32", Title: "Security of processing (encryption)"}},
	},
	CategoryLogging: {
		FrameworkISO27001:       {{Framework: FrameworkISO27001, Clause: "A.8.15", Title: "Logging"}},
		FrameworkSOC2:           {{Framework: FrameworkSOC2, Clause: "CC7.2", Title: "Monitor and detect"}},
		FrameworkNISTCSF:        {{Framework: FrameworkNISTCSF, Clause: "DE.CM-1", Title: "Monitoring for anomalies"}},
		FrameworkPCIDSS:         {{Framework: FrameworkPCIDSS, Clause: "10.2", Title: "Log and monitor all access"}},
		FrameworkEssentialEight: {{Framework: FrameworkEssentialEight, Clause: "LM", Title: "Logging & monitoring (maturity)"}},
		FrameworkGDPR:           {{Framework: FrameworkGDPR, Clause: "Art. 5(1)(f)", Title: "Integrity and confidentiality"}},
	},
	CategoryBackups: {
		FrameworkISO27001:       {{Framework: FrameworkISO27001, Clause: "A.8.13", Title: "Backup"}},
		FrameworkSOC2:           {{Framework: FrameworkSOC2, Clause: "CC7.3", Title: "Resilience and recovery"}},
		FrameworkNISTCSF:        {{Framework: FrameworkNISTCSF, Clause: "PR.IP-4", Title: "Backups maintained and tested"}},
		FrameworkPCIDSS:         {{Framework: FrameworkPCIDSS, Clause: "12.10.4", Title: "Incident response incl. recovery"}},
		FrameworkEssentialEight: {{Framework: FrameworkEssentialEight, Clause: "DR", Title: "Backups & recovery (maturity)"}},
		FrameworkGDPR:           {{Framework: FrameworkGDPR, Clause: "Art. 32", Title: "Availability and resilience"}},
	},
	CategoryPatching: {
		FrameworkISO27001:       {{Framework: FrameworkISO27001, Clause: "A.8.8", Title: "Technical vulnerabilities"}},
		FrameworkSOC2:           {{Framework: FrameworkSOC2, Clause: "CC7.1", Title: "Identify & mitigate vulnerabilities"}},
		FrameworkNISTCSF:        {{Framework: FrameworkNISTCSF, Clause: "PR.IP-12", Title: "Vulnerability management"}},
		FrameworkPCIDSS:         {{Framework: FrameworkPCIDSS, Clause: "6.3", Title: "Security patches"}},
		FrameworkEssentialEight: {{Framework: FrameworkEssentialEight, Clause: "PA", Title: "Patch apps/OS (maturity)"}},
		FrameworkGDPR:           {{Framework: FrameworkGDPR, Clause: "Art. 25", Title: "Data protection by design/default"}},
	},
	CategoryAccessReviews: {
		FrameworkISO27001:       {{Framework: FrameworkISO27001, Clause: "A.5.18", Title: "Access rights"}},
		FrameworkSOC2:           {{Framework: FrameworkSOC2, Clause: "CC6.3", Title: "Provisioning and reviews"}},
		FrameworkNISTCSF:        {{Framework: FrameworkNISTCSF, Clause: "PR.AC-4", Title: "Permissions managed"}},
		FrameworkPCIDSS:         {{Framework: FrameworkPCIDSS, Clause: "7.2", Title: "Access by business need"}},
		FrameworkEssentialEight: {{Framework: FrameworkEssentialEight, Clause: "AC", Title: "Least privilege (maturity)"}},
		FrameworkGDPR:           {{Framework: FrameworkGDPR, Clause: "Art. 5(1)(c)", Title: "Data minimisation"}},
	},
}
